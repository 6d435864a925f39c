package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"godlearn/config"
	"godlearn/internal/usecase"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run the integrity cross-check and record a passing gate",
	Long: `Cross-check manifest, filesystem and vector store without mutating
any of them. A clean result records a verified marker that the promote
command requires; any mismatch fails with an integrity exit code.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Print the full integrity classification report",
	Long: `Run the same read-only cross-check as verify and print every
finding (ok, missing_vector, orphan_vector, missing_source) as JSON,
without recording a gate marker.`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(auditCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	root := GetRootDir()

	st, err := openStore(root)
	if err != nil {
		return err
	}
	defer st.Close()

	auditUC := usecase.NewAuditUseCase(st, openManifest(root), root)

	report, err := auditUC.Verify(config.VerifiedMarkerPath(root))
	if report != nil {
		fmt.Printf("Checked %d entries: %d ok, %d missing_vector, %d orphan_vector, %d missing_source\n",
			report.Checked,
			report.Counts["ok"],
			report.Counts["missing_vector"],
			report.Counts["orphan_vector"],
			report.Counts["missing_source"])
	}
	if err != nil {
		return err
	}

	fmt.Println("Verification passed; promotion gate open.")
	return nil
}

func runAudit(cmd *cobra.Command, args []string) error {
	root := GetRootDir()

	st, err := openStore(root)
	if err != nil {
		return err
	}
	defer st.Close()

	auditUC := usecase.NewAuditUseCase(st, openManifest(root), root)

	report, err := auditUC.Audit()
	if err != nil {
		return err
	}

	output, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(output))
	return nil
}
