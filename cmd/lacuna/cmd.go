package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/TheApexWu/lacuna/internal"
)

var (
	log *logrus.Logger

	cfgFile     string
	showVersion bool
	dumpConfig  bool

	inputPath  string
	outputPath string

	probeText  string
	probeTextB string
	probeLangA string
	probeLangB string
)

var cmd = &cobra.Command{
	Use:   "lacuna",
	Short: "lacuna embeds conceptual frames across languages and maps which ideas lack a semantic slot in which language",
	Run:   func(cmd *cobra.Command, args []string) { run() },
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <dataset>...",
	Short: "Report per-language coverage and readiness for one or more concept datasets",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inspect(args)
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Compare a live sentence against the concept set across a language pair",
	Run: func(cmd *cobra.Command, args []string) {
		probe()
	},
}

func init() {
	cmd.AddCommand(inspectCmd)
	cmd.AddCommand(probeCmd)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default config.yaml)")
	cmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "print version number")
	cmd.PersistentFlags().BoolVarP(&dumpConfig, "dump-config", "d", false, "dump config")
	cmd.PersistentFlags().
		StringVarP(&inputPath, "input", "i", "concepts.json", "concept dataset to process")
	cmd.Flags().
		StringVarP(&outputPath, "output", "o", "-", "output file for the run result (- for stdout)")

	probeCmd.Flags().StringVarP(&probeText, "text", "t", "", "sentence to probe")
	probeCmd.Flags().
		StringVar(&probeTextB, "text-b", "", "translation of the probe for the second language (defaults to --text)")
	probeCmd.Flags().StringVar(&probeLangA, "lang-a", "en", "first language of the pair")
	probeCmd.Flags().StringVar(&probeLangB, "lang-b", "de", "second language of the pair")
	_ = probeCmd.MarkFlagRequired("text")
}

// Execute executes the root cobra command.
func Execute() {
	log = internal.GetLogger()
	log.SetLevel(logrus.InfoLevel)

	err := cmd.Execute()

	if err != nil {
		os.Exit(1)
	}
}
