package experiment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/realsim/cosim/sim"
	"github.com/realsim/cosim/sim/trace"
)

// Runner evaluates every policy of an experiment. Each policy runs in its own
// goroutine on its own cluster and job set; the heatmap is built once and
// shared read-only.
type Runner struct {
	exp     *Experiment
	metrics *Metrics
}

// NewRunner validates exp and returns a runner for it. metrics may be nil.
func NewRunner(exp *Experiment, metrics *Metrics) (*Runner, error) {
	if exp == nil {
		return nil, errors.New("nil experiment")
	}
	if err := exp.Validate(); err != nil {
		return nil, errors.Wrapf(err, "experiment %s", exp.Name)
	}
	return &Runner{exp: exp, metrics: metrics}, nil
}

// defaultRun lets the other runs wait for the default policy's result.
type defaultRun struct {
	once   sync.Once
	done   chan struct{}
	result *EvaluationResult
	err    error
}

func newDefaultRun() *defaultRun {
	return &defaultRun{done: make(chan struct{})}
}

func (d *defaultRun) publish(result *EvaluationResult, err error) {
	d.once.Do(func() {
		d.result, d.err = result, err
		close(d.done)
	})
}

func (d *defaultRun) wait(ctx context.Context) (*EvaluationResult, error) {
	select {
	case <-d.done:
		if d.err != nil {
			return nil, errors.Wrap(d.err, "default policy failed")
		}
		return d.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run simulates every policy and returns one result per policy, in the order
// of Experiment.Policies. The first failing run cancels the others.
func (r *Runner) Run(ctx context.Context) ([]*EvaluationResult, error) {
	x := r.exp
	heatmap := sim.BuildHeatmap(x.Trace.Workloads())
	key := sim.NewSimulationKey(x.Seed)
	defIdx := x.defaultIndex()

	order := make([]int, 0, len(x.Policies))
	order = append(order, defIdx)
	for i := range x.Policies {
		if i != defIdx {
			order = append(order, i)
		}
	}

	results := make([]*EvaluationResult, len(x.Policies))
	def := newDefaultRun()
	g, gctx := errgroup.WithContext(ctx)
	if x.Parallelism > 0 {
		g.SetLimit(x.Parallelism)
	}
	// The default run goes first so it holds a slot while the others wait.
	for _, idx := range order {
		g.Go(func() error {
			if idx == defIdx {
				res, err := r.runPolicy(gctx, x.Policies[idx], heatmap, key)
				if err == nil {
					res.Default = true
					res.compareWith(res)
				}
				def.publish(res, err)
				results[idx] = res
				return err
			}
			res, err := r.runPolicy(gctx, x.Policies[idx], heatmap, key)
			if err != nil {
				return err
			}
			base, err := def.wait(gctx)
			if err != nil {
				return err
			}
			res.compareWith(base)
			results[idx] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// runPolicy performs one complete simulation. Invariant violations inside the
// engine surface as errors carrying the engine's state dump.
func (r *Runner) runPolicy(ctx context.Context, cfg sim.PolicyConfig, heatmap sim.Heatmap, key sim.SimulationKey) (res *EvaluationResult, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x := r.exp
	name := cfg.DisplayName()
	runID := uuid.NewString()
	log := logrus.WithFields(logrus.Fields{
		"experiment": x.Name,
		"policy":     name,
		"run":        runID,
	})

	jobs, err := x.Trace.Jobs(key)
	if err != nil {
		return nil, errors.Wrapf(err, "policy %s", name)
	}
	level := x.TraceLevel
	if level == "" {
		level = trace.TraceLevelDecisions
	}
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: level})
	obs := &recorder{experiment: x.Name, policy: name, trace: st, metrics: r.metrics}

	db := sim.NewSpeedupDatabase(jobs, heatmap)
	cluster := sim.NewCluster(x.Cluster.Nodes, x.Cluster.Layout(), x.Cluster.QueueLimit())
	engine := sim.NewComputeEngine(db, cluster, sim.NewScheduler(cfg, key), obs)

	defer func() {
		if p := recover(); p != nil {
			res, err = nil, errors.Errorf("policy %s: %v", name, p)
		}
	}()

	log.Infof("Running %d jobs", len(jobs))
	if err := engine.Run(); err != nil {
		return nil, errors.Wrapf(err, "policy %s", name)
	}
	st.Finish(engine.Makespan)
	r.metrics.observeMakespan(x.Name, name, engine.Makespan)

	res = newEvaluationResult(x.Name, name, runID, engine, st)
	log.WithField("makespan", fmt.Sprintf("%.3f", engine.Makespan)).Info("Run finished")
	return res, nil
}
