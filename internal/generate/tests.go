package generate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mucm/internal/domain"
)

const (
	markerStart = "START USER IMPLEMENTATION ["
	markerEnd   = "END USER IMPLEMENTATION ["
)

// TestSkeletonPath returns where the skeleton for this use case and
// language lives.
func (g *Generator) TestSkeletonPath(uc *domain.UseCase, language string) (string, error) {
	ext, ok := languageExt(language)
	if !ok {
		return "", fmt.Errorf("unsupported test language %q (supported: %s)", language, languageNames())
	}
	return filepath.Join(g.Root, g.Config.Directories.TestDir,
		domain.SnakeCase(uc.Category), domain.SnakeCase(uc.ID)+"."+ext), nil
}

// TestSkeleton renders the skeleton and re-injects user edits from the
// prior content. Regions whose scenario no longer exists are dropped.
func (g *Generator) TestSkeleton(uc *domain.UseCase, language, prior string) (string, error) {
	if _, ok := languageExt(language); !ok {
		return "", fmt.Errorf("unsupported test language %q (supported: %s)", language, languageNames())
	}
	ctx, err := buildContext(uc, "", nil)
	if err != nil {
		return "", err
	}
	fresh, err := g.Engine.Render("languages/"+language+"/test", ctx)
	if err != nil {
		return "", err
	}
	if prior == "" {
		return fresh, nil
	}
	return injectRegions(fresh, extractRegions(prior)), nil
}

// WriteTestSkeleton renders to the skeleton path, preserving user
// regions from any prior file. A missing prior file is first-time
// rendering.
func (g *Generator) WriteTestSkeleton(uc *domain.UseCase, language string) (string, error) {
	path, err := g.TestSkeletonPath(uc, language)
	if err != nil {
		return "", err
	}
	prior := ""
	if data, err := os.ReadFile(path); err == nil {
		prior = string(data)
	} else if !os.IsNotExist(err) {
		return "", err
	}
	content, err := g.TestSkeleton(uc, language, prior)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, []byte(content), 0o644)
}

func languageNames() string {
	names := make([]string, len(languages))
	for i, l := range languages {
		names[i] = l.Name
	}
	return strings.Join(names, ", ")
}

// markerID pulls the scenario ID out of a marker line, or "".
func markerID(line, marker string) string {
	i := strings.Index(line, marker)
	if i < 0 {
		return ""
	}
	rest := line[i+len(marker):]
	j := strings.IndexByte(rest, ']')
	if j < 0 {
		return ""
	}
	return rest[:j]
}

// extractRegions maps scenario ID to the user content between its
// markers.
func extractRegions(content string) map[string]string {
	regions := map[string]string{}
	lines := strings.Split(content, "\n")
	for i := 0; i < len(lines); i++ {
		id := markerID(lines[i], markerStart)
		if id == "" {
			continue
		}
		var body []string
		for j := i + 1; j < len(lines); j++ {
			if markerID(lines[j], markerEnd) == id {
				regions[id] = strings.Join(body, "\n")
				i = j
				break
			}
			body = append(body, lines[j])
		}
	}
	return regions
}

// injectRegions replaces each marker block's body in fresh with the
// preserved region of the same scenario ID. Blocks without a preserved
// region keep their freshly rendered body; preserved regions whose ID
// is absent from fresh are dropped.
func injectRegions(fresh string, regions map[string]string) string {
	if len(regions) == 0 {
		return fresh
	}
	lines := strings.Split(fresh, "\n")
	var out []string
	for i := 0; i < len(lines); i++ {
		out = append(out, lines[i])
		id := markerID(lines[i], markerStart)
		if id == "" {
			continue
		}
		body, ok := regions[id]
		if !ok {
			continue
		}
		end := -1
		for j := i + 1; j < len(lines); j++ {
			if markerID(lines[j], markerEnd) == id {
				end = j
				break
			}
		}
		if end < 0 {
			continue
		}
		if body != "" {
			out = append(out, strings.Split(body, "\n")...)
		}
		out = append(out, lines[end])
		i = end
	}
	return strings.Join(out, "\n")
}
