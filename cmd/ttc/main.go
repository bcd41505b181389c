// Command ttc runs a ThingTalk program through the full core pipeline —
// type checking, optimization, remote factoring, and compilation to IR —
// against a small in-process demo schema. There is no parser in this
// module (the concrete grammar is out of scope), so the demo program is
// built directly with the ast package's constructors rather than read
// from source text.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"goa.design/clue/log"

	"github.com/stanford-oval/thingtalk/ast"
	"github.com/stanford-oval/thingtalk/compiler"
	"github.com/stanford-oval/thingtalk/optimizer"
	"github.com/stanford-oval/thingtalk/remote"
	"github.com/stanford-oval/thingtalk/schema"
	"github.com/stanford-oval/thingtalk/semantic"
	"github.com/stanford-oval/thingtalk/telemetry"
	"github.com/stanford-oval/thingtalk/types"
)

func main() {
	var (
		dbgF  = flag.Bool("debug", false, "enable debug logging")
		seedF = flag.Int64("seed", 0, "deterministic flow-token seed for remote factoring (0 = random)")
	)
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
	}

	if err := run(ctx, *seedF); err != nil {
		log.Error(ctx, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, seed int64) error {
	logger := telemetry.NewClueLogger()
	tracer := telemetry.NewClueTracer()
	metrics := telemetry.NewClueMetrics()

	retriever := schema.NewRetriever(demoSource{},
		schema.WithLogger(logger),
		schema.WithTracer(tracer),
		schema.WithMetrics(metrics),
	)
	analyzer := semantic.NewAnalyzer(retriever,
		semantic.WithLogger(logger),
		semantic.WithTracer(tracer),
	)
	opt := optimizer.New(
		optimizer.WithTracer(tracer),
	)
	remoteOpts := []remote.Option{
		remote.WithLogger(logger),
		remote.WithTracer(tracer),
		remote.WithMetrics(metrics),
	}
	if seed != 0 {
		remoteOpts = append(remoteOpts, remote.WithSeed(seed))
	}
	factorer := remote.New(remoteOpts...)
	comp := compiler.New(
		compiler.WithLogger(logger),
		compiler.WithTracer(tracer),
		compiler.WithMetrics(metrics),
	)

	prog := demoProgram()

	if err := analyzer.TypeCheckProgram(ctx, prog); err != nil {
		return fmt.Errorf("type check: %w", err)
	}

	opt.OptimizeProgram(ctx, prog)

	factored, err := factorer.FactorProgram(ctx, prog)
	if err != nil {
		return fmt.Errorf("factor remote: %w", err)
	}

	rules, err := comp.CompileProgram(ctx, factored.Local)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	log.Print(ctx, log.KV{K: "local-rules", V: len(rules)})
	for i, r := range rules {
		log.Print(ctx, log.KV{K: "rule", V: i}, log.KV{K: "functions", V: len(r.Functions)}, log.KV{K: "instructions", V: len(r.Main)})
	}
	for _, rp := range factored.Remote {
		log.Print(ctx, log.KV{K: "remote-principal", V: rp.Principal.String()}, log.KV{K: "remote-rules", V: len(rp.Program.Rules)})
	}

	return nil
}

// demoProgram builds "monitor my tweets, post each one to bob's feed" —
// one stream-driven rule with a remote action, just enough surface to
// exercise type checking, optimization, and remote factoring together.
func demoProgram() *ast.Program {
	bob := &ast.EntityValue{ID: "bob", Kind: "tt:username"}

	tweets := &ast.InvocationTable{Kind_: "com.twitter", Channel: "my_tweets"}
	post := &ast.InvocationAction{
		Kind_:   "com.twitter",
		Channel: "post",
		InParams: []ast.InputParam{
			{Name: "status", Value: &ast.VarRefValue{Name: "text"}},
		},
		Principal: bob,
	}

	return &ast.Program{
		Rules: []*ast.Rule{
			{
				Stream:  &ast.MonitorStream{Table: tweets},
				Actions: []ast.Action{post},
			},
		},
	}
}

// demoSource is a fixed, in-process schema.Source standing in for a
// Thingpedia-like registry: just enough device metadata to resolve the
// demo program's two invocations.
type demoSource struct{}

func (demoSource) FetchClasses(ctx context.Context, kinds []string, wantMeta bool) (map[string]*ast.ClassDef, map[string]error) {
	classes := make(map[string]*ast.ClassDef)
	for _, kind := range kinds {
		if kind != "com.twitter" {
			continue
		}
		cls := ast.NewClassDef("com.twitter", nil)
		cls.AddQuery("my_tweets", &ast.FunctionDef{
			Kind:          ast.FunctionQuery,
			Name:          "my_tweets",
			IsMonitorable: true,
			IsList:        true,
			Args: []ast.ArgumentDef{
				{Direction: ast.ArgOut, Name: "text", Type: types.String},
			},
		})
		cls.AddAction("post", &ast.FunctionDef{
			Kind: ast.FunctionAction,
			Name: "post",
			Args: []ast.ArgumentDef{
				{Direction: ast.ArgIn, Name: "status", Type: types.String, Required: true},
			},
		})
		classes[kind] = cls
	}
	return classes, nil
}

func (demoSource) FetchMixins(ctx context.Context, names []string) (map[string]*schema.MixinDef, map[string]error) {
	return nil, nil
}

func (demoSource) FetchMemorySchema(ctx context.Context, table string) (*ast.FunctionDef, error) {
	return nil, nil
}
