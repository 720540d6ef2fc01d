package cmd

import (
	"strings"

	"github.com/msalah0e/garden/internal/graph"
	"github.com/spf13/cobra"
)

// completionCmd generates shell completion scripts.
func completionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate completion scripts for your shell.

  # Bash (add to ~/.bashrc)
  eval "$(garden completion bash)"

  # Zsh (add to ~/.zshrc)
  eval "$(garden completion zsh)"

  # Fish
  garden completion fish | source

  # PowerShell
  garden completion powershell | Out-String | Invoke-Expression`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Run: func(cmd *cobra.Command, args []string) {
			switch args[0] {
			case "bash":
				_ = rootCmd.GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				_ = rootCmd.GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				_ = rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				_ = rootCmd.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
		},
	}

	return cmd
}

// entityCompletionFunc completes the first argument with entity names.
func entityCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return entityNames(toComplete), cobra.ShellCompDirectiveNoFileComp
}

// relationCompletionFunc completes <from> <relationship> <to>.
func relationCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0, 2:
		return entityNames(toComplete), cobra.ShellCompDirectiveNoFileComp
	case 1:
		return graph.RelationshipTypes, cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func typeCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return graph.Types, cobra.ShellCompDirectiveNoFileComp
}

func entityNames(prefix string) []string {
	g, err := graph.Load(dataPath())
	if err != nil {
		return nil
	}
	prefix = strings.ToLower(prefix)
	var completions []string
	for _, e := range g.Entities {
		if strings.HasPrefix(strings.ToLower(e.Name), prefix) {
			completions = append(completions, e.Name+"\t"+e.Type)
		}
	}
	return completions
}
