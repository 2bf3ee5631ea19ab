package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/bubble-cli/internal/postcodes"
)

var postcodesCmd = &cobra.Command{
	Use:   "postcodes <paf.csv>...",
	Short: "Find postcode sectors that span more than one ward",
	Long: "Reads Royal Mail PAF CSV exports (Postcode, Postcode Sector, Ward Code, Ward Name columns), " +
		"groups postcodes by sector and ward, and writes JSON, YAML, text and CSV reports to --output.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := postcodes.ReadFiles(cmd.Context(), args...)
		if err != nil {
			return err
		}

		dir, _ := cmd.Flags().GetString("output")
		if dir == "" {
			dir = filepath.Join(cfg.Output.Dir, "postcodes")
		}
		paths, err := ix.WriteAll(dir)
		if err != nil {
			return err
		}

		top, _ := cmd.Flags().GetInt("top")
		formatPostcodes(os.Stdout, ix, top)
		_, _ = fmt.Fprintf(os.Stdout, "\nWrote %d files to %s\n", len(paths), dir)
		return nil
	},
}

func formatPostcodes(out io.Writer, ix *postcodes.Index, top int) {
	split := ix.Split()
	_, _ = fmt.Fprintf(out, "%d postcodes, %d sectors, %d wards; %d sectors span multiple wards\n",
		ix.Postcodes(), len(ix.Sectors()), ix.Wards(), len(split))
	if len(split) == 0 || top <= 0 {
		return
	}
	if len(split) > top {
		split = split[:top]
	}

	_, _ = fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SECTOR\tWARDS")
	for _, c := range split {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", c.Sector, c.Wards)
	}
	_ = w.Flush()
}

func init() {
	postcodesCmd.Flags().String("output", "", "report directory (default <output.dir>/postcodes)")
	postcodesCmd.Flags().Int("top", 20, "number of split sectors to print")
	rootCmd.AddCommand(postcodesCmd)
}
