package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheBeachLab/mods-mcp/internal/introspect"
	"github.com/TheBeachLab/mods-mcp/internal/program"
	"github.com/TheBeachLab/mods-mcp/internal/storage"
	"github.com/TheBeachLab/mods-mcp/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mods-mcp version",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newOutputFormatter(cmd)
			if out.jsonMode {
				return out.Print(map[string]string{"version": version.String()})
			}
			return out.Print(version.String())
		},
	}
}

func newIntrospectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "introspect <module.js>",
		Short: "Report a module definition's name and ports",
		Long: `Evaluate a module definition file in the sandbox and report its declared
name, input ports and output ports, together with the strategy that
recovered them (structural evaluation or pattern matching).`,
		Args: cobra.ExactArgs(1),
		RunE: runIntrospect,
	}
}

func runIntrospect(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}

	result := introspect.Introspect(string(source))
	if result.Method == introspect.MethodFailed {
		if err := out.Print(result); err != nil {
			return err
		}
		return fmt.Errorf("introspection failed: %s", result.Err)
	}
	return out.Print(result)
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <module.js> [module.js ...]",
		Short: "Assemble a program document from module definition files",
		Long: `Build a loadable program document from module files and optional links.
Links name ports as module.port on each side, joined by '>':

  mods-mcp build modules/ui/slider.js modules/math/gain.js \
    --link "slider.value>gain.value" --output program.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runBuild,
	}
	cmd.Flags().StringArray("link", nil, "Connection as 'source.port>dest.port' (repeatable)")
	cmd.Flags().StringP("output", "o", "", "Write the document to this path instead of stdout")
	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	linkSpecs, _ := cmd.Flags().GetStringArray("link")
	output, _ := cmd.Flags().GetString("output")

	links := make([]program.LinkSpec, 0, len(linkSpecs))
	for _, raw := range linkSpecs {
		from, to, ok := strings.Cut(raw, ">")
		if !ok {
			return fmt.Errorf("link %q: want 'source.port>dest.port'", raw)
		}
		links = append(links, program.LinkSpec{
			From: strings.TrimSpace(from),
			To:   strings.TrimSpace(to),
		})
	}

	doc, err := program.Build(storage.NewLocal(), args, links)
	if err != nil {
		return err
	}
	data, err := doc.Marshal()
	if err != nil {
		return err
	}

	if output == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(output, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d modules, %d links)\n", output, len(doc.Modules), len(doc.Links))
	return nil
}
