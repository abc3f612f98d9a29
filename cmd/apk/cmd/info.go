package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apkforge/apk"
)

var infoCmd = &cobra.Command{
	Use:   "info [archive]",
	Short: "Print the metadata record of an existing archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	f, err := apk.Open(args[0])
	if err != nil {
		return err
	}

	p := f.Package()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "name:      %s\n", p.Name)
	fmt.Fprintf(out, "version:   %s\n", p.Version)
	fmt.Fprintf(out, "arch:      %s\n", p.Arch)
	if p.Description != "" {
		fmt.Fprintf(out, "desc:      %s\n", p.Description)
	}
	if p.URL != "" {
		fmt.Fprintf(out, "url:       %s\n", p.URL)
	}
	fmt.Fprintf(out, "size:      %d\n", p.Size)
	if len(p.Depends) > 0 {
		fmt.Fprintf(out, "depends:   %s\n", strings.Join(p.Depends, " "))
	}
	if len(p.Provides) > 0 {
		fmt.Fprintf(out, "provides:  %s\n", strings.Join(p.Provides, " "))
	}
	if p.DataHash != "" {
		fmt.Fprintf(out, "datahash:  %s\n", p.DataHash)
	}
	return nil
}
