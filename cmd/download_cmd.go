package cmd

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var downloadOutput string

var downloadCmd = &cobra.Command{
	Use:   "download <key>",
	Short: "Copy a stored backup to a local file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		o, err := newOrchestrator(cmd.Context())
		if err != nil {
			return err
		}
		rc, err := o.Download(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer rc.Close()

		dst := downloadOutput
		if dst == "" {
			dst = path.Base(args[0])
		}
		f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("create %q: %w", dst, err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(dst)
			}
		}()

		n, err := io.Copy(f, rc)
		if err != nil {
			return fmt.Errorf("download %q: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", dst, humanize.Bytes(uint64(n)))
		return nil
	},
}

func init() {
	downloadCmd.Flags().
		StringVarP(&downloadOutput, "output", "o", "", "destination file (defaults to the archive name)")
}
