package admin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/cottonadvisor/internal/forest"
)

var errNoBucket = errors.New("no model bucket configured (set COTTON_MODEL_BUCKET or --bucket)")

func (a *app) pushModelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push-model <file>",
		Short: "Upload a model artifact to the model bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := filepath.Base(args[0])
			if !slices.Contains(forest.Artifacts, name) {
				return fmt.Errorf("unknown artifact %q (want one of %s)", name, strings.Join(forest.Artifacts, ", "))
			}
			if a.cfg.ModelBucket == "" {
				return errNoBucket
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			store, err := newModelStore(ctx, a.cfg)
			if err != nil {
				return err
			}
			if err := store.Put(ctx, name, f); err != nil {
				return fmt.Errorf("upload %s: %w", name, err)
			}

			a.log.Info(ctx, "model artifact uploaded", "artifact", name, "bucket", a.cfg.ModelBucket)
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s to s3://%s/%s.\n", name, a.cfg.ModelBucket, name)
			return nil
		},
	}
}
