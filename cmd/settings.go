// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/propertybag/internal/value"
	"github.com/cardinalhq/propertybag/rules"
	"github.com/cardinalhq/propertybag/schema"
	"github.com/cardinalhq/propertybag/settings"
)

var (
	resourceType string
	resourceID   string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read and write the settings of one resource",
	Long: `Values are written and printed as JSON scalars: true, 1, 1.5, "1".
A value that is not a JSON scalar is taken as a plain string.`,
}

func init() {
	settingsCmd.PersistentFlags().StringVar(&resourceType, "type", "", "Resource type, e.g. App\\Models\\User")
	settingsCmd.PersistentFlags().StringVar(&resourceID, "id", "", "Resource id")
	_ = settingsCmd.MarkPersistentFlagRequired("type")

	settingsCmd.AddCommand(
		&cobra.Command{
			Use:   "get KEY...",
			Short: "Print the current value of keys",
			Args:  cobra.MinimumNArgs(1),
			RunE: runForResource(func(ctx context.Context, cmd *cobra.Command, st *settings.Settings, args []string) error {
				for _, key := range args {
					v, err := st.Get(ctx, key)
					if err != nil {
						return err
					}
					if err := printValue(cmd.OutOrStdout(), key, v); err != nil {
						return err
					}
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "set KEY=VALUE...",
			Short: "Store values; a value equal to the default removes the override",
			Args:  cobra.MinimumNArgs(1),
			RunE: runForResource(func(ctx context.Context, cmd *cobra.Command, st *settings.Settings, args []string) error {
				attributes := make(map[string]any, len(args))
				for _, arg := range args {
					key, v, err := parseAssignment(arg)
					if err != nil {
						return err
					}
					attributes[key] = v
				}
				if _, err := st.Set(ctx, attributes); err != nil {
					return err
				}
				return printValues(cmd.OutOrStdout(), st.AllSaved())
			}),
		},
		&cobra.Command{
			Use:   "reset KEY...",
			Short: "Restore keys to their defaults",
			Args:  cobra.MinimumNArgs(1),
			RunE: runForResource(func(ctx context.Context, cmd *cobra.Command, st *settings.Settings, args []string) error {
				for _, key := range args {
					def, err := st.Reset(ctx, key)
					if err != nil {
						return err
					}
					if err := printValue(cmd.OutOrStdout(), key, def); err != nil {
						return err
					}
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "all",
			Short: "Print every registered key resolved against stored overrides",
			Args:  cobra.NoArgs,
			RunE: runForResource(func(ctx context.Context, cmd *cobra.Command, st *settings.Settings, _ []string) error {
				all, err := st.All(ctx)
				if err != nil {
					return err
				}
				return printValues(cmd.OutOrStdout(), all)
			}),
		},
		&cobra.Command{
			Use:   "saved",
			Short: "Print stored overrides only",
			Args:  cobra.NoArgs,
			RunE: runForResource(func(_ context.Context, cmd *cobra.Command, st *settings.Settings, _ []string) error {
				return printValues(cmd.OutOrStdout(), st.AllSaved())
			}),
		},
		&cobra.Command{
			Use:   "defaults",
			Short: "Print the default of every registered key",
			Args:  cobra.NoArgs,
			RunE: runForResource(func(_ context.Context, cmd *cobra.Command, st *settings.Settings, _ []string) error {
				return printValues(cmd.OutOrStdout(), st.AllDefaults())
			}),
		},
		&cobra.Command{
			Use:   "allowed",
			Short: "Print the allowed values or rule of every registered key",
			Args:  cobra.NoArgs,
			RunE: runForResource(func(_ context.Context, cmd *cobra.Command, st *settings.Settings, _ []string) error {
				return printAllowed(cmd.OutOrStdout(), st.AllAllowed())
			}),
		},
		&cobra.Command{
			Use:   "lint",
			Short: "Report defaults that their own allowed values reject",
			Args:  cobra.NoArgs,
			RunE: runWithCache(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
				source, err := schema.NewFileSource(a.cfg.Schema.Path)
				if err != nil {
					return err
				}
				registered, err := source.Schema(ctx, resourceType)
				if err != nil {
					return err
				}
				issues := registered.Lint(rules.NewRegistry())
				for _, issue := range issues {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), issue.String()); err != nil {
						return err
					}
				}
				if len(issues) > 0 {
					return fmt.Errorf("%d schema issue(s) for %s", len(issues), resourceType)
				}
				return nil
			}),
		},
	)

	rootCmd.AddCommand(settingsCmd)
}

// runForResource opens the app and loads the settings of --type/--id.
func runForResource(fn func(ctx context.Context, cmd *cobra.Command, st *settings.Settings, args []string) error) func(*cobra.Command, []string) error {
	return runWithApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		if resourceID == "" {
			return fmt.Errorf("--id is required")
		}
		st, err := a.service.For(ctx, schema.Ref{Type: resourceType, ID: resourceID})
		if err != nil {
			return err
		}
		return fn(ctx, cmd, st, args)
	})
}

// parseAssignment splits KEY=VALUE. VALUE is read as a JSON scalar when
// it is one, else as a string.
func parseAssignment(arg string) (string, value.Value, error) {
	key, raw, ok := strings.Cut(arg, "=")
	if !ok || key == "" {
		return "", nil, fmt.Errorf("expected KEY=VALUE, got %q", arg)
	}
	if v, err := value.Decode([]byte("[" + raw + "]")); err == nil {
		return key, v, nil
	}
	return key, raw, nil
}

// formatValue renders v the way parseAssignment reads it.
func formatValue(v value.Value) (string, error) {
	encoded, err := value.Encode(v)
	if err != nil {
		return "", err
	}
	return string(encoded[1 : len(encoded)-1]), nil
}

func printValue(w io.Writer, key string, v value.Value) error {
	s, err := formatValue(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s=%s\n", key, s)
	return err
}

func printValues(w io.Writer, values map[string]value.Value) error {
	for _, key := range slices.Sorted(maps.Keys(values)) {
		if err := printValue(w, key, values[key]); err != nil {
			return err
		}
	}
	return nil
}

func printAllowed(w io.Writer, allowed map[string]schema.AllowedSpec) error {
	for _, key := range slices.Sorted(maps.Keys(allowed)) {
		spec := allowed[key]
		if spec.IsRule() {
			if _, err := fmt.Fprintf(w, "%s=%s\n", key, spec.Rule); err != nil {
				return err
			}
			continue
		}
		parts := make([]string, 0, len(spec.Values))
		for _, v := range spec.Values {
			s, err := formatValue(v)
			if err != nil {
				return err
			}
			parts = append(parts, s)
		}
		if _, err := fmt.Fprintf(w, "%s=[%s]\n", key, strings.Join(parts, ", ")); err != nil {
			return err
		}
	}
	return nil
}
