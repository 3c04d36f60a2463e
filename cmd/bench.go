package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/notargets/gosph/nbrtree"
	"github.com/notargets/gosph/particle"
	"github.com/notargets/gosph/sph"
	"github.com/notargets/gosph/walk"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark the density and gradient passes, optionally under a CPU profile",
	Run: func(cmd *cobra.Command, args []string) {
		n, _ := cmd.Flags().GetInt("n")
		mode, _ := cmd.Flags().GetString("mode")
		cpuProfile, _ := cmd.Flags().GetBool("profile")
		runBench(n, mode, cpuProfile)
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().IntP("n", "n", 5000, "number of synthetic particles")
	benchCmd.Flags().StringP("mode", "m", "grid", "particle layout: grid or cluster")
	benchCmd.Flags().Bool("profile", false, "wrap the run in a CPU profile (pprof output written to the working directory)")
}

func buildSet(n int, mode string) []*particle.Particle {
	if mode == "cluster" {
		return buildCluster(n)
	}
	return buildGrid(n)
}

func runBench(n int, mode string, cpuProfile bool) {
	if cpuProfile {
		defer profile.Start(profile.CPUProfile).Stop()
	}

	p := loadParams()
	ps := buildSet(n, mode)
	finder := nbrtree.NewBruteForce(ps, 0)
	ctx := walk.NewContext(p.Workers)
	active := make([]int, len(ps))
	for i := range ps {
		active[i] = i
	}
	isLocal := func(int) bool { return true }

	start := time.Now()
	if err := sph.DensityPass(ctx, finder, active, p); err != nil {
		fmt.Println("density pass failed:", err)
		os.Exit(1)
	}
	densityElapsed := time.Since(start)

	start = time.Now()
	if err := sph.GradientsPass(ctx, finder, active, isLocal, p); err != nil {
		fmt.Println("gradients pass failed:", err)
		os.Exit(1)
	}
	gradientElapsed := time.Since(start)

	fmt.Printf("particles=%d mode=%s density=%s gradients=%s\n", len(ps), mode, densityElapsed, gradientElapsed)
}
