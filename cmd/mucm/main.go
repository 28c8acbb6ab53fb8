package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mucm/internal/config"
	"mucm/internal/engine"
	"mucm/internal/generate"
	"mucm/internal/methodology"
	"mucm/internal/project"
)

var version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:     "mucm",
	Short:   "Multi-methodology use case manager",
	Version: version,
	Long: `mucm manages a corpus of use case documents.
Each use case owns scenarios with ordered steps, is rendered through one or
more methodology views (business, developer, tester, feature) at a chosen
depth level, and gets a language-specific test skeleton whose user-edited
regions survive regeneration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("interactive") {
			return runInteractive(cmd)
		}
		return cmd.Help()
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("MUCM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("root", "C", ".", "project root directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.Flags().BoolP("interactive", "i", false, "guided use case creation")
	_ = viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("interactive", rootCmd.Flags().Lookup("interactive"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(addScenarioCmd())
	rootCmd.AddCommand(updateStatusCmd())
	rootCmd.AddCommand(regenerateCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(cleanupFieldsCmd())
	rootCmd.AddCommand(lintCmd())
	rootCmd.AddCommand(methodologiesCmd())
	rootCmd.AddCommand(methodologyInfoCmd())
	rootCmd.AddCommand(languagesCmd())
	rootCmd.AddCommand(personaCmd())
	rootCmd.AddCommand(interactiveCmd())
}

func initCmd() *cobra.Command {
	var opts project.Options
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Bootstrap a project in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := project.Init(viper.GetString("root"), opts)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			fmt.Printf("Initialized project %q (backend: %s)\n", cfg.Project.Name, cfg.Templates.StorageBackend)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "project name (defaults to the directory name)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "project description")
	cmd.Flags().StringVar(&opts.StorageBackend, "storage-backend", "", "storage backend (toml or sqlite)")
	cmd.Flags().StringVar(&opts.TestLanguage, "test-language", "", "test skeleton language")
	return cmd
}

func createCmd() *cobra.Command {
	var opts engine.CreateOptions
	var fields []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a use case",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if opts.FieldValues, err = parseFieldValues(fields); err != nil {
				return err
			}
			return withEngine(func(e *engine.Engine) error {
				uc, err := e.CreateUseCase(opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(uc)
				}
				fmt.Printf("Created %s: %s\n", uc.ID, uc.Title)
				for _, v := range uc.Views {
					fmt.Printf("  view %s\n", v.Key())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "use case title")
	cmd.Flags().StringVar(&opts.Category, "category", "", "category the ID prefix derives from")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "priority (low, medium, high, critical)")
	cmd.Flags().StringArrayVar(&opts.Views, "view", nil, "methodology:level view, repeatable")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "methodology.field=value, repeatable")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

// parseFieldValues turns "methodology.field=value" pairs into the
// nested map the creator expects.
func parseFieldValues(pairs []string) (map[string]map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := map[string]map[string]any{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("field %q: want methodology.field=value", pair)
		}
		meth, field, ok := strings.Cut(key, ".")
		if !ok || meth == "" || field == "" {
			return nil, fmt.Errorf("field %q: want methodology.field=value", pair)
		}
		if out[meth] == nil {
			out[meth] = map[string]any{}
		}
		out[meth][field] = value
	}
	return out, nil
}

func listCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List use cases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e *engine.Engine) error {
				all, err := e.List()
				if err != nil {
					return err
				}
				if category != "" {
					kept := all[:0]
					for _, uc := range all {
						if strings.EqualFold(uc.Category, category) {
							kept = append(kept, uc)
						}
					}
					all = kept
				}
				if viper.GetBool("json") {
					return printJSON(all)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Category", "Priority", "Status", "Scenarios"})
				for _, uc := range all {
					tw.AppendRow(table.Row{uc.ID, uc.Title, uc.Category, uc.Priority, uc.AggregateStatus(), len(uc.Scenarios)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	return cmd
}

func showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <use-case-id>",
		Short: "Show one use case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e *engine.Engine) error {
				uc, err := e.Get(args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(uc)
				}
				fmt.Printf("%s: %s [%s, %s]\n", uc.ID, uc.Title, uc.Priority, uc.AggregateStatus())
				if uc.Description != "" {
					fmt.Println(uc.Description)
				}
				for _, v := range uc.Views {
					state := "enabled"
					if !v.Enabled {
						state = "disabled"
					}
					fmt.Printf("  view %s (%s)\n", v.Key(), state)
				}
				for _, sc := range uc.Scenarios {
					fmt.Printf("  %s %s [%s, %s]\n", sc.ID, sc.Title, sc.Type, sc.Status)
					for _, st := range sc.Steps {
						fmt.Printf("    %d. %s: %s\n", st.Order, st.Actor.Name(), st.Action)
					}
				}
				return nil
			})
		},
	}
	return cmd
}

func deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <use-case-id>",
		Short: "Delete a use case and its rendered views",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e *engine.Engine) error {
				if err := e.Delete(args[0]); err != nil {
					return err
				}
				fmt.Printf("Deleted %s\n", args[0])
				return nil
			})
		},
	}
	return cmd
}

func addScenarioCmd() *cobra.Command {
	var opts engine.ScenarioOptions
	var steps []string
	cmd := &cobra.Command{
		Use:   "add-scenario <use-case-id>",
		Short: "Add a scenario to a use case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range steps {
				step, err := parseStep(s)
				if err != nil {
					return err
				}
				opts.Steps = append(opts.Steps, step)
			}
			return withEngine(func(e *engine.Engine) error {
				sc, err := e.AddScenario(args[0], opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(sc)
				}
				fmt.Printf("Added %s: %s (%s)\n", sc.ID, sc.Title, sc.Type)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "scenario title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Type, "type", "", "scenario type (happy_path, alternative_flow, exception_flow, extension)")
	cmd.Flags().StringVar(&opts.Persona, "persona", "", "persona id acting in this scenario")
	cmd.Flags().StringArrayVar(&steps, "step", nil, `step as "Actor: action", repeatable`)
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

// parseStep splits "Actor: action" step notation. A step without the
// colon becomes a System action.
func parseStep(s string) (engine.ScenarioStepInput, error) {
	actor, action, ok := strings.Cut(s, ":")
	if !ok {
		actor, action = "System", s
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return engine.ScenarioStepInput{}, fmt.Errorf("step %q has no action", s)
	}
	return engine.ScenarioStepInput{Actor: strings.TrimSpace(actor), Action: action}, nil
}

func updateStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-status <scenario-id> <status>",
		Short: "Set a scenario's implementation status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e *engine.Engine) error {
				uc, err := e.UpdateScenarioStatus(args[0], args[1])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(uc)
				}
				fmt.Printf("%s -> %s (aggregate %s)\n", args[0], args[1], uc.AggregateStatus())
				return nil
			})
		},
	}
	return cmd
}

func regenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regenerate [use-case-id...]",
		Short: "Re-render views, test skeletons and the overview",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e *engine.Engine) error {
				if err := e.Regenerate(args...); err != nil {
					return err
				}
				fmt.Println("Regenerated")
				return nil
			})
		},
	}
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show aggregate status per use case",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e *engine.Engine) error {
				rows, err := e.Status()
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Category", "Priority", "Status", "Scenarios"})
				for _, r := range rows {
					tw.AppendRow(table.Row{r.ID, r.Title, r.Category, r.Priority, r.Status, r.Scenarios})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func cleanupFieldsCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "cleanup-fields [use-case-id]",
		Short: "Remove methodology fields no enabled view can display",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return withEngine(func(e *engine.Engine) error {
				report, err := e.CleanupFields(id, dryRun)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(report)
				}
				verb := "cleaned"
				if report.DryRun {
					verb = "would clean"
				}
				fmt.Printf("%s %d of %d use cases\n", verb, report.Cleaned, report.Examined)
				for _, d := range report.Details {
					if len(d.Methodologies) > 0 {
						fmt.Printf("  %s: methodologies %s\n", d.UseCaseID, strings.Join(d.Methodologies, ", "))
					}
					for m, names := range d.Fields {
						fmt.Printf("  %s: %s fields %s\n", d.UseCaseID, m, strings.Join(names, ", "))
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without mutating")
	return cmd
}

func lintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Report dangling references and missing personas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e *engine.Engine) error {
				warnings, err := e.Lint()
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(warnings)
				}
				if len(warnings) == 0 {
					fmt.Println("No issues found")
					return nil
				}
				for _, w := range warnings {
					fmt.Println("warning:", w)
				}
				return nil
			})
		},
	}
	return cmd
}

func methodologiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "methodologies",
		Short: "List available methodologies",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry()
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(reg.Available())
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Name", "Title", "Levels"})
			for _, name := range reg.Available() {
				def, _ := reg.Get(name)
				tw.AppendRow(table.Row{def.Name, def.Title, strings.Join(def.LevelNames(), ", ")})
			}
			tw.Render()
			return nil
		},
	}
	return cmd
}

func methodologyInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "methodology-info <name>",
		Short: "Show a methodology's levels and fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry()
			if err != nil {
				return err
			}
			def, ok := reg.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown methodology %q (available: %s)", args[0], strings.Join(reg.Available(), ", "))
			}
			if viper.GetBool("json") {
				return printJSON(def)
			}
			fmt.Printf("%s: %s\n", def.Name, def.Title)
			if def.Description != "" {
				fmt.Println(def.Description)
			}
			for _, lvl := range def.Levels {
				fields, err := methodology.ResolveFields(def, lvl.Name)
				if err != nil {
					return err
				}
				fmt.Printf("  %s (%s)\n", lvl.Name, lvl.Abbreviation)
				for _, fname := range fields.Names() {
					f := fields[fname]
					req := ""
					if f.Required {
						req = " (required)"
					}
					fmt.Printf("    %s: %s%s\n", fname, f.Type, req)
				}
			}
			return nil
		},
	}
	return cmd
}

func languagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List supported test skeleton languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			langs := generate.Languages()
			if viper.GetBool("json") {
				return printJSON(langs)
			}
			for _, l := range langs {
				fmt.Printf("%s (.%s)\n", l.Name, l.Ext)
			}
			return nil
		},
	}
	return cmd
}

func personaCmd() *cobra.Command {
	persona := &cobra.Command{Use: "persona", Short: "Manage reusable personas"}
	persona.AddCommand(personaCreateCmd())
	persona.AddCommand(personaListCmd())
	persona.AddCommand(personaDeleteCmd())
	return persona
}

func personaCreateCmd() *cobra.Command {
	var opts engine.PersonaOptions
	cmd := &cobra.Command{
		Use:   "create <id>",
		Short: "Create a persona and its documentation page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ID = args[0]
			return withEngine(func(e *engine.Engine) error {
				p, err := e.CreatePersona(opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(p)
				}
				fmt.Printf("Created persona %s %s (%s)\n", p.Emoji, p.Name, p.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (defaults from the id)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "persona type (persona, system, external_service, database, custom)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Goal, "goal", "", "what this persona wants from the system")
	cmd.Flags().StringVar(&opts.Context, "context", "", "background information")
	cmd.Flags().IntVar(&opts.TechLevel, "tech-level", 0, "technical proficiency, 1 to 5")
	cmd.Flags().StringVar(&opts.UsageFrequency, "usage-frequency", "", "how often the persona uses the system (daily, weekly, occasional)")
	cmd.Flags().StringVar(&opts.Emoji, "emoji", "", "display emoji")
	_ = cmd.MarkFlagRequired("goal")
	return cmd
}

func personaListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List personas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e *engine.Engine) error {
				all, err := e.ListPersonas()
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(all)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Type", "Emoji"})
				for _, p := range all {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Type, p.Emoji})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func personaDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e *engine.Engine) error {
				if err := e.DeletePersona(args[0]); err != nil {
					return err
				}
				fmt.Printf("Deleted persona %s\n", args[0])
				return nil
			})
		},
	}
	return cmd
}

func interactiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Create a use case through guided prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd)
		},
	}
	return cmd
}

func runInteractive(cmd *cobra.Command) error {
	return withEngine(func(e *engine.Engine) error {
		in := bufio.NewScanner(cmd.InOrStdin())
		prompt := func(label string) string {
			fmt.Printf("%s: ", label)
			if !in.Scan() {
				return ""
			}
			return strings.TrimSpace(in.Text())
		}
		opts := engine.CreateOptions{
			Title:       prompt("Title"),
			Category:    prompt("Category"),
			Description: prompt("Description (optional)"),
			Priority:    prompt("Priority [medium]"),
		}
		if views := prompt("Views, comma separated methodology:level (empty for default)"); views != "" {
			for _, v := range strings.Split(views, ",") {
				opts.Views = append(opts.Views, strings.TrimSpace(v))
			}
		}
		uc, err := e.CreateUseCase(opts)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s: %s\n", uc.ID, uc.Title)
		for {
			title := prompt("Scenario title (empty to finish)")
			if title == "" {
				break
			}
			scOpts := engine.ScenarioOptions{Title: title, Type: prompt("Type [happy_path]")}
			for {
				step := prompt(`Step "Actor: action" (empty to finish)`)
				if step == "" {
					break
				}
				parsed, err := parseStep(step)
				if err != nil {
					fmt.Println(err)
					continue
				}
				scOpts.Steps = append(scOpts.Steps, parsed)
			}
			sc, err := e.AddScenario(uc.ID, scOpts)
			if err != nil {
				return err
			}
			fmt.Printf("Added %s\n", sc.ID)
		}
		return nil
	})
}

// --- helpers ---

func withEngine(fn func(*engine.Engine) error) error {
	e, err := engine.Open(viper.GetString("root"))
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(e)
}

// openRegistry loads the built-in methodologies plus project overrides
// when run inside an initialized project. Outside one, the built-ins
// alone are listed.
func openRegistry() (*methodology.Registry, error) {
	reg, err := methodology.NewRegistry()
	if err != nil {
		return nil, err
	}
	root := viper.GetString("root")
	if project.IsInitialized(root) {
		if err := reg.LoadOverrides(config.MethodologyDir(root)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
