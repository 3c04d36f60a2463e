package cmd

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gosph/config"
	"github.com/notargets/gosph/nbrtree"
	"github.com/notargets/gosph/particle"
	"github.com/notargets/gosph/sph"
	"github.com/notargets/gosph/walk"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the density and gradient passes over a synthetic particle set",
	Run: func(cmd *cobra.Command, args []string) {
		n, _ := cmd.Flags().GetInt("n")
		mode, _ := cmd.Flags().GetString("mode")
		runDemo(n, mode)
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().IntP("n", "n", 1000, "number of synthetic particles")
	demoCmd.Flags().StringP("mode", "m", "grid", "particle layout: grid or cluster")
}

func loadParams() config.Params {
	p := config.Default()
	if cfgFile == "" && viper.ConfigFileUsed() == "" {
		return p
	}
	data, err := os.ReadFile(viper.ConfigFileUsed())
	if err != nil {
		return p
	}
	parsed, err := config.Parse(data)
	if err != nil {
		fmt.Println("warning: could not parse config file, using defaults:", err)
		return p
	}
	return parsed
}

func buildGrid(n int) []*particle.Particle {
	side := 1
	for side*side*side < n {
		side++
	}
	ps := make([]*particle.Particle, 0, n)
	spacing := 1.0
	id := uint64(0)
	for x := 0; x < side && len(ps) < n; x++ {
		for y := 0; y < side && len(ps) < n; y++ {
			for z := 0; z < side && len(ps) < n; z++ {
				ps = append(ps, &particle.Particle{
					ID:     id,
					Kind:   particle.Gas,
					Pos:    particle.Vec3{float64(x) * spacing, float64(y) * spacing, float64(z) * spacing},
					Mass:   1,
					Hsml:   2.0 * spacing,
					Active: true,
					Gas:    &particle.GasState{EntropyPred: 1},
				})
				id++
			}
		}
	}
	return ps
}

func buildCluster(n int) []*particle.Particle {
	rng := rand.New(rand.NewSource(1))
	ps := make([]*particle.Particle, n)
	for i := 0; i < n; i++ {
		ps[i] = &particle.Particle{
			ID:     uint64(i),
			Kind:   particle.Gas,
			Pos:    particle.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()},
			Mass:   1,
			Hsml:   0.5,
			Active: true,
			Gas:    &particle.GasState{EntropyPred: 1},
		}
	}
	return ps
}

func runDemo(n int, mode string) {
	var ps []*particle.Particle
	switch mode {
	case "cluster":
		ps = buildCluster(n)
	default:
		ps = buildGrid(n)
	}

	p := loadParams()
	finder := nbrtree.NewBruteForce(ps, 0)
	ctx := walk.NewContext(p.Workers)
	active := make([]int, len(ps))
	for i := range ps {
		active[i] = i
	}
	isLocal := func(int) bool { return true }

	if err := sph.DensityPass(ctx, finder, active, p); err != nil {
		fmt.Println("density pass failed:", err)
		os.Exit(1)
	}
	if err := sph.GradientsPass(ctx, finder, active, isLocal, p); err != nil {
		fmt.Println("gradients pass failed:", err)
		os.Exit(1)
	}

	var minRho, maxRho, sumRho float64
	minRho = ps[0].Gas.Density
	for _, pt := range ps {
		rho := pt.Gas.Density
		if rho < minRho {
			minRho = rho
		}
		if rho > maxRho {
			maxRho = rho
		}
		sumRho += rho
	}
	fmt.Printf("particles=%d mode=%s\n", len(ps), mode)
	fmt.Printf("density: min=%.6g mean=%.6g max=%.6g\n", minRho, sumRho/float64(len(ps)), maxRho)
}
