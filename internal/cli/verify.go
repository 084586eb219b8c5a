package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/veogen/internal/verify"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <veo>...",
	Short: "Verify the signatures of VEOs",
	Long: `Verify every signature block and the lock signature block of each VEO.

The certificates are not checked against a trust anchor; only that each signature was made
by the key of the first certificate in its block.

Example:
  veocreator verify ./veos/*.veo`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	failed := 0
	for _, path := range args {
		report, err := verify.File(path)
		if report == nil {
			// the file could not be read or parsed
			fmt.Fprintf(out, "✗ %s: %v\n", path, err)
			failed++
			continue
		}

		fmt.Fprintf(out, "%s\n", report.Name)
		for _, res := range report.Results {
			label := res.ID
			if res.Lock {
				label = "lock on " + res.ID
			}
			if res.OK() {
				fmt.Fprintf(out, "  ✓ %s %s signed by %s at %s\n", label, res.Algorithm, res.Signer, res.Date)
			} else {
				fmt.Fprintf(out, "  ✗ %s: %v\n", label, res.Err)
			}
		}
		if err != nil {
			failed++
		}
		appLogger.Debug("VEO verified",
			slog.String("veo", path),
			slog.Int("signatures", len(report.Results)),
			slog.Int("failures", report.Failures()))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d VEOs failed verification", failed, len(args))
	}
	return nil
}
