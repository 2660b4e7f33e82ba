package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gofhir/nistvalidator/pkg/hl7"
	"github.com/gofhir/nistvalidator/pkg/location"
	"github.com/gofhir/nistvalidator/pkg/profile"
)

func newResolveCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <file|pattern|->...",
		Short: "Print the validation profile each message resolves to",
		Long: `Print the validation profile each message resolves to, without calling
the service. Exits with status 1 if any message is unrecognized.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			resolver := profile.NewResolver(profile.WithOIDs(cfg.Profiles.OIDs))

			names, err := expandArgs(args)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			failed := false
			for _, in := range readInputs(names, cmd.InOrStdin()) {
				if in.err != nil {
					fmt.Fprintf(w, "%s\terror: %v\n", in.name, in.err)
					failed = true
					continue
				}
				header, _ := hl7.ReadHeader(in.message)
				resource, ok := resolver.ResolveMessage(in.message)
				if !ok {
					fmt.Fprintf(w, "%s\t%s^%s\tunrecognized\n", in.name, header.MessageType, header.ProfileID)
					failed = true
					continue
				}
				fmt.Fprintf(w, "%s\t%s^%s\t%s\t%s\n", in.name, header.MessageType, header.ProfileID, resource.Name, resource.OID)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if failed {
				return errFailed
			}
			return nil
		},
	}
}

// pathOutput is the JSON form of a parsed path.
type pathOutput struct {
	Path      string             `json:"path"`
	Location  *location.Location `json:"location"`
	Canonical string             `json:"canonical,omitempty"`
}

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <path>...",
		Short: "Decode assertion paths such as OBX[2]-5[3].1.2",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, p := range args {
				out := pathOutput{Path: p, Location: location.Parse(p)}
				if out.Location != nil {
					out.Canonical = out.Location.String()
				}
				if err := enc.Encode(out); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newProfilesCmd(global *globalFlags) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List the profile resolution rules in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			resolver := profile.NewResolver(profile.WithOIDs(cfg.Profiles.OIDs))

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if all {
				fmt.Fprintln(w, "PROFILE\tOID\tDESCRIPTION")
				for _, r := range profile.Resources() {
					r, _ = resolver.Lookup(r.Name)
					fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.OID, r.Description)
				}
				return w.Flush()
			}

			fmt.Fprintln(w, "#\tRULE\tPROFILE\tOID")
			for i, rule := range resolver.Rules() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, rule.Name, rule.Resource.Name, rule.Resource.OID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "List every known profile, including ones no rule selects")
	return cmd
}
