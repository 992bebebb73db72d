package types

import (
	"fmt"
	"path"
	"strconv"

	"github.com/pkg/errors"
	"github.com/zeu5/evo-rl-tuning/util"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// RewardAnalyzer collects the total reward of every episode
type RewardAnalyzer struct {
	rewards []float64
}

var _ Analyzer = &RewardAnalyzer{}

func NewRewardAnalyzer() *RewardAnalyzer {
	return &RewardAnalyzer{
		rewards: make([]float64, 0),
	}
}

func (r *RewardAnalyzer) Analyze(_ int, _ int, _ string, t *Trace) {
	r.rewards = append(r.rewards, t.TotalReward())
}

// DataSet is the []float64 of episode returns
func (r *RewardAnalyzer) DataSet() DataSet {
	out := make([]float64, len(r.rewards))
	copy(out, r.rewards)
	return out
}

func (r *RewardAnalyzer) Reset() {
	r.rewards = make([]float64, 0)
}

// RewardSummary is the mean and standard deviation of the episode returns
type RewardSummary struct {
	Mean   float64
	StdDev float64
	Last   float64
}

func SummarizeRewards(rewards []float64) RewardSummary {
	if len(rewards) == 0 {
		return RewardSummary{}
	}
	s := RewardSummary{Last: rewards[len(rewards)-1]}
	if len(rewards) == 1 {
		s.Mean = rewards[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(rewards, nil)
	return s
}

// RewardPrinter prints a reward summary per experiment
func RewardPrinter() Comparator {
	return func(run, _ int, names []string, ds []DataSet) error {
		for i, name := range names {
			rewards, ok := ds[i].([]float64)
			if !ok {
				continue
			}
			s := SummarizeRewards(rewards)
			fmt.Printf("Run %d, experiment: %s, mean reward: %.3f (std %.3f), last episode: %.1f\n", run, name, s.Mean, s.StdDev, s.Last)
		}
		return nil
	}
}

// RewardPlotter draws the episode returns of every experiment in one chart
func RewardPlotter(plotPath string) Comparator {
	return func(run, _ int, names []string, ds []DataSet) error {
		if err := util.EnsureDir(plotPath); err != nil {
			return err
		}
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = "Total reward"
		for i := 0; i < len(names); i++ {
			rewards, ok := ds[i].([]float64)
			if !ok || len(rewards) == 0 {
				continue
			}
			points := make(plotter.XYs, len(rewards))
			for j, v := range rewards {
				points[j] = plotter.XY{
					X: float64(j),
					Y: v,
				}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				return errors.Wrapf(err, "plotting %s", names[i])
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
		}
		return p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_rewards.png"))
	}
}

// CoverageAnalyzer tracks the number of unique states observed after every episode
type CoverageAnalyzer struct {
	uniqueStates    map[int]bool
	numUniqueStates []int
}

var _ Analyzer = &CoverageAnalyzer{}

func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{
		uniqueStates:    make(map[int]bool),
		numUniqueStates: make([]int, 0),
	}
}

func (c *CoverageAnalyzer) Analyze(_ int, _ int, _ string, t *Trace) {
	for _, s := range t.Steps {
		c.uniqueStates[s.State] = true
		c.uniqueStates[s.NextState] = true
	}
	c.numUniqueStates = append(c.numUniqueStates, len(c.uniqueStates))
}

// DataSet is the []int of unique states covered after each episode
func (c *CoverageAnalyzer) DataSet() DataSet {
	out := make([]int, len(c.numUniqueStates))
	copy(out, c.numUniqueStates)
	return out
}

func (c *CoverageAnalyzer) Reset() {
	c.uniqueStates = make(map[int]bool)
	c.numUniqueStates = make([]int, 0)
}

func CoveragePlotter(plotPath string) Comparator {
	return func(run, _ int, names []string, ds []DataSet) error {
		if err := util.EnsureDir(plotPath); err != nil {
			return err
		}
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = "States covered"
		for i := 0; i < len(names); i++ {
			uniqueStates, ok := ds[i].([]int)
			if !ok || len(uniqueStates) == 0 {
				continue
			}
			points := make(plotter.XYs, len(uniqueStates))
			for j, v := range uniqueStates {
				points[j] = plotter.XY{
					X: float64(j),
					Y: float64(v),
				}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				return errors.Wrapf(err, "plotting %s", names[i])
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
			fmt.Printf("Number of unique states: %d for experiment: %s\n", uniqueStates[len(uniqueStates)-1], names[i])
		}
		return p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_coverage.png"))
	}
}
