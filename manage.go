package main

import (
	"strings"

	"github.com/spf13/cobra"

	"dictate/internal/app"
	"dictate/internal/mcpserver"
	"dictate/internal/ui"
)

// withStores opens the stores for the duration of fn.
func (c *cli) withStores(fn func(s *app.Stores) error) error {
	s, err := app.OpenStores(c.cfg, c.log.Named("db"))
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func (c *cli) newWordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "words",
		Short: "Manage the personal dictionary",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <spoken> <corrected>",
		Short: "Add or replace a correction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStores(func(s *app.Stores) error {
				if err := s.Words.Add(args[0], args[1]); err != nil {
					return err
				}
				ui.NewPrinter(cmd.OutOrStdout()).Done("added " + args[0] + " → " + args[1])
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <spoken>",
		Short: "Remove a correction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStores(func(s *app.Stores) error {
				if err := s.Words.Remove(args[0]); err != nil {
					return err
				}
				ui.NewPrinter(cmd.OutOrStdout()).Done("removed " + args[0])
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List corrections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStores(func(s *app.Stores) error {
				ui.NewPrinter(cmd.OutOrStdout()).Words(s.Words.Entries())
				return nil
			})
		},
	})
	return cmd
}

func (c *cli) newSnippetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snippets",
		Short: "Manage voice snippets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <trigger> <expansion...>",
		Short: "Add or replace a snippet",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			expansion := strings.Join(args[1:], " ")
			return c.withStores(func(s *app.Stores) error {
				if err := s.Snippets.Add(args[0], expansion); err != nil {
					return err
				}
				ui.NewPrinter(cmd.OutOrStdout()).Done("added " + args[0])
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <trigger>",
		Short: "Remove a snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStores(func(s *app.Stores) error {
				if err := s.Snippets.Remove(args[0]); err != nil {
					return err
				}
				ui.NewPrinter(cmd.OutOrStdout()).Done("removed " + args[0])
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List snippets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStores(func(s *app.Stores) error {
				ui.NewPrinter(cmd.OutOrStdout()).Snippets(s.Snippets.Entries())
				return nil
			})
		},
	})
	return cmd
}

func (c *cli) newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent dictations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStores(func(s *app.Stores) error {
				rows, err := s.DB.RecentDictations(limit)
				if err != nil {
					return err
				}
				ui.NewPrinter(cmd.OutOrStdout()).History(rows)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of dictations to show")
	return cmd
}

func (c *cli) newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve dictionary and snippet tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStores(func(s *app.Stores) error {
				return mcpserver.New(s.Words, s.Snippets, version, c.log.Named("mcp")).ServeStdio()
			})
		},
	}
}
