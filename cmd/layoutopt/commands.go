package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/layoutevo/internal/evaluation"
	"github.com/copyleftdev/layoutevo/internal/layout"
	"github.com/copyleftdev/layoutevo/internal/optimization/annealing"
	"github.com/copyleftdev/layoutevo/internal/optimization/genetic"
)

func newEvaluateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate [layout]",
		Short: "Evaluate a layout and print its cost breakdown",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, layouts, perms, err := a.setup("", "")
			if err != nil {
				return err
			}
			text := perms.BaseLayout()
			if len(args) == 1 {
				text = args[0]
			}
			l, err := layouts.Generate(text)
			if err != nil {
				return err
			}
			res, err := model.Evaluate(l)
			if err != nil {
				return err
			}
			printEvaluation(cmd.OutOrStdout(), l, res)
			return nil
		},
	}
}

func newPlotCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plot [layout]",
		Short: "Render a layout on the keyboard",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, layouts, perms, err := a.setup("", "")
			if err != nil {
				return err
			}
			text := perms.BaseLayout()
			if len(args) == 1 {
				text = args[0]
			}
			l, err := layouts.Generate(text)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), l.Plot())
			return nil
		},
	}
}

func newKeysCmd(a *app) *cobra.Command {
	var fixed string
	cmd := &cobra.Command{
		Use:   "keys [layout]",
		Short: "List the permutable keys of a layout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := ""
			if len(args) == 1 {
				base = args[0]
			}
			_, _, perms, err := a.setup(base, fixed)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), perms.Slots())
			return nil
		},
	}
	cmd.Flags().StringVar(&fixed, "fixed", "", "Fixed characters (default from the layout config)")
	return cmd
}

// searchFlags are shared by the optimizing subcommands.
type searchFlags struct {
	start      string
	fixed      string
	params     string
	random     bool
	seed       int64
	iterations int
}

func (f *searchFlags) register(cmd *cobra.Command, iterationsUsage string) {
	cmd.Flags().StringVar(&f.start, "start", "", "Starting layout (default from the layout config)")
	cmd.Flags().StringVar(&f.fixed, "fixed", "", "Fixed characters (default from the layout config)")
	cmd.Flags().StringVar(&f.params, "params", "", "YAML optimization parameters")
	cmd.Flags().BoolVar(&f.random, "random-start", false, "Start from random layouts instead of the starting layout")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed (0 uses the clock)")
	cmd.Flags().IntVar(&f.iterations, "iters", 0, iterationsUsage)
}

func newGeneticCmd(a *app) *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "genetic",
		Short: "Optimize with the genetic algorithm",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, layouts, perms, err := a.setup(f.start, f.fixed)
			if err != nil {
				return err
			}
			data, err := readParams(f.params)
			if err != nil {
				return err
			}
			params, err := genetic.ParseParameters(data)
			if err != nil {
				return err
			}
			if f.seed != 0 {
				params.Seed = f.seed
			}
			if f.iterations > 0 {
				params.GenerationLimit = f.iterations
			}

			opt, err := genetic.New(params, model, perms, !f.random, genetic.WithLogger(a.logger))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var best float64
			for {
				step := opt.Step()
				switch step.Kind {
				case genetic.FailedOutcome:
					return step.Err
				case genetic.Intermediate, genetic.Final:
					if step.Generation == 1 || step.AllTimeBest.Cost() < best {
						best = step.AllTimeBest.Cost()
						fmt.Fprintf(out, "generation %d: %s (%.4f)\n", step.Generation, step.AllTimeBest.Layout, best)
					}
				}
				if step.Kind == genetic.Final {
					fmt.Fprintf(out, "finished after %d generations: %s\n", step.Generation, step.Reason)
					l, err := layouts.Generate(step.AllTimeBest.Layout)
					if err != nil {
						return err
					}
					printEvaluation(out, l, step.AllTimeBest.Result)
					return nil
				}
			}
		},
	}
	f.register(cmd, "Generation limit (overrides the parameters)")
	return cmd
}

func newAnnealCmd(a *app) *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "anneal",
		Short: "Optimize with simulated annealing",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, layouts, perms, err := a.setup(f.start, f.fixed)
			if err != nil {
				return err
			}
			data, err := readParams(f.params)
			if err != nil {
				return err
			}
			params, err := annealing.ParseParameters(data)
			if err != nil {
				return err
			}
			if f.seed != 0 {
				params.Seed = f.seed
			}
			if f.iterations > 0 {
				params.MaxIters = f.iterations
			}

			out := cmd.OutOrStdout()
			obs := annealing.NewChannelObserver(64)
			done := make(chan struct{})
			go func() {
				defer close(done)
				printEvents(out, obs.Events())
			}()

			res, err := annealing.Optimize(cmd.Context(), params, model, perms, !f.random,
				annealing.WithObserver(obs), annealing.WithLogger(a.logger))
			obs.Close()
			<-done
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "finished after %d iterations, %d accepted\n", res.Iterations, res.Accepted)
			l, err := layouts.Generate(res.Best.Layout)
			if err != nil {
				return err
			}
			printEvaluation(out, l, res.Best.Result)
			return nil
		},
	}
	f.register(cmd, "Iteration budget (overrides the parameters)")
	return cmd
}

// printEvents reports annealing progress until the stream is closed.
func printEvents(w io.Writer, events <-chan annealing.Event) {
	budget := 0
	for ev := range events {
		switch ev.Kind {
		case annealing.EventStart:
			budget = ev.MaxIters
			fmt.Fprintf(w, "annealing for %d iterations\n", budget)
		case annealing.EventProgress:
			if budget >= 10 && ev.Iteration%(budget/10) == 0 {
				fmt.Fprintf(w, "iteration %d/%d\n", ev.Iteration, budget)
			}
		case annealing.EventNewBest:
			fmt.Fprintf(w, "new best: %s (%.4f)\n", ev.Layout, ev.Result.TotalCost())
		}
	}
}

func printEvaluation(w io.Writer, l *layout.Layout, res *evaluation.Result) {
	fmt.Fprintln(w, l.Text())
	fmt.Fprintln(w, l.Plot())
	fmt.Fprintln(w)
	fmt.Fprint(w, res.String())
}
