package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/roiedanino/ucx/pkg/codec"
	"github.com/roiedanino/ucx/pkg/config"
	"github.com/roiedanino/ucx/pkg/lane"
	"github.com/roiedanino/ucx/pkg/observability"
	"github.com/roiedanino/ucx/pkg/perf"
	"github.com/roiedanino/ucx/pkg/proto"
	"github.com/roiedanino/ucx/pkg/transport"
	"github.com/roiedanino/ucx/pkg/transport/mem"
	"github.com/roiedanino/ucx/pkg/transport/pipe"
	"github.com/roiedanino/ucx/pkg/transport/quic"
	"github.com/roiedanino/ucx/pkg/transport/tcp"
	"github.com/roiedanino/ucx/pkg/transport/udp"
)

// laneReport is what the inspector prints per selection run.
type laneReport struct {
	Proto      string         `json:"proto" cbor:"proto"`
	Lane       uint8          `json:"lane" cbor:"lane"`
	LaneKind   string         `json:"lane_kind" cbor:"lane_kind"`
	LaneMap    uint64         `json:"lane_map" cbor:"lane_map"`
	RegDomains uint64         `json:"reg_domains" cbor:"reg_domains"`
	PrivSize   int            `json:"priv_size" cbor:"priv_size"`
	PrivBlob   string         `json:"priv_blob" cbor:"priv_blob"`
	PerfGraph  map[string]any `json:"perf_graph,omitempty" cbor:"perf_graph,omitempty"`
}

// run is the main entry point after CLI parsing.
func run(opts Options) int {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()

	zap.L().Info("ucx-lanes started", zap.String("app", cfg.AppName), zap.Int("lanes", len(cfg.Lanes)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if opts.Serve {
		return serve(ctx, cfg)
	}

	ep, err := lane.FromConfig(cfg)
	if err != nil {
		zap.L().Error("failed to build lane table", zap.Error(err))
		return 1
	}

	est := perf.NewEstimator(ep, time.Minute)
	defer est.Close()
	if cfg.Selection.ProbeRounds > 0 {
		probeLanes(ctx, cfg, ep, est)
	}

	agg := proto.NewCapsAggregator()
	defer agg.Release()

	reg := proto.NewRegistry()
	reg.RegisterPrioritized(amShortProto())

	d, ok := reg.Get("am.short.priority")
	if !ok {
		zap.L().Error("prioritized protocol not registered")
		return 1
	}
	var sel proto.Selection
	var privSize int
	params := &proto.InitParams{
		Proto:            d.Name,
		Endpoint:         ep,
		Provider:         est,
		Aggregator:       agg,
		CapFlags:         lane.CapActiveMessage,
		Category:         lane.CatData,
		MaxCandidates:    cfg.Selection.MaxCandidates,
		NumPriorityLanes: 1,
		Priv:             &sel,
		PrivSize:         &privSize,
	}
	if err := d.Init(params); err != nil {
		zap.L().Error("protocol init failed", zap.String("proto", d.Name), zap.Error(err))
		return 1
	}

	return printReport(opts.Format, d.Name, ep, sel, privSize, agg)
}

// amShortProto is a demo protocol: a short active-message send whose
// steady-state behaviors only consume the priv blob.
func amShortProto() proto.Descriptor {
	return proto.Descriptor{
		Name: "am.short",
		Desc: "short active message",
		Init: func(*proto.InitParams) error { return nil },
		Query: func(_ *proto.QueryParams, a *proto.Attr) {
			a.Desc = "short active message"
		},
		Progress: func(r *proto.Request) error {
			zap.L().Debug("progress", zap.Uint64("lane_map", uint64(r.Priv.Lanes)))
			return nil
		},
		Abort: func(*proto.Request, error) {},
		Reset: func(*proto.Request) error { return nil },
	}
}

func printReport(format, protoName string, ep *lane.Endpoint, sel proto.Selection, privSize int, agg *proto.CapsAggregator) int {
	var c codec.Codec
	switch format {
	case "cbor":
		cc, err := codec.CBOR()
		if err != nil {
			zap.L().Error("cbor codec", zap.Error(err))
			return 1
		}
		c = cc
	default:
		c = codec.JSON()
	}

	var chosen lane.Index
	for i := 0; i < ep.NumLanes(); i++ {
		if sel.Lanes.Has(lane.Index(i)) {
			chosen = lane.Index(i)
			break
		}
	}
	blob, _ := sel.MarshalBinary()
	rep := laneReport{
		Proto:      protoName,
		Lane:       uint8(chosen),
		LaneKind:   ep.Lane(chosen).Kind.String(),
		LaneMap:    uint64(sel.Lanes),
		RegDomains: uint64(sel.RegDomains),
		PrivSize:   privSize,
		PrivBlob:   hex.EncodeToString(blob),
	}
	if entries := agg.Entries(); len(entries) > 0 {
		rep.PerfGraph = entries[len(entries)-1].Node.Report()
	}

	out, err := c.Marshal(rep)
	if err != nil {
		zap.L().Error("marshal report", zap.Error(err))
		return 1
	}
	if c.ContentType() == "application/json" {
		fmt.Println(string(out))
	} else {
		fmt.Println(hex.EncodeToString(out))
	}
	return 0
}

// transportFor returns a transport implementation for a lane kind.
func transportFor(k transport.Kind, shared *mem.Transport) (transport.Transport, error) {
	switch k {
	case transport.KindMem:
		return shared, nil
	case transport.KindTCP:
		return tcp.New(), nil
	case transport.KindUDP:
		return udp.New(), nil
	case transport.KindQUIC:
		return quic.New()
	case transport.KindPipe:
		return pipe.New(), nil
	default:
		return nil, fmt.Errorf("no transport for kind %s", k)
	}
}

// serve listens on every configured lane and echoes probe frames so remote
// inspectors can measure RTT.
func serve(ctx context.Context, cfg *config.Config) int {
	shared := mem.New()
	for i, lc := range cfg.Lanes {
		k := transport.ParseKind(lc.Kind)
		tr, err := transportFor(k, shared)
		if err != nil {
			zap.L().Warn("skipping lane", zap.Int("lane", i), zap.Error(err))
			continue
		}
		l, err := tr.Listen(ctx, lc.Address)
		if err != nil {
			zap.L().Error("listen failed", zap.Int("lane", i), zap.String("addr", lc.Address), zap.Error(err))
			return 1
		}
		zap.L().Info("lane listening", zap.Int("lane", i), zap.Stringer("kind", k), zap.String("addr", l.Addr().String()))
		go func() {
			for {
				link, err := l.Accept(ctx)
				if err != nil {
					return
				}
				go func() { _ = transport.Echo(ctx, link) }()
			}
		}()
	}
	zap.L().Info("echo responder running; press Ctrl+C to exit")
	<-ctx.Done()
	return 0
}

// probeLanes measures RTT for each dialable lane and feeds the estimator.
// Mem lanes are probed against an in-process echo listener; network lanes
// need a peer running with -serve.
func probeLanes(ctx context.Context, cfg *config.Config, ep *lane.Endpoint, est *perf.Estimator) {
	shared := mem.New()
	for i := 0; i < ep.NumLanes(); i++ {
		lcfg := ep.Lane(lane.Index(i))
		tr, err := transportFor(lcfg.Kind, shared)
		if err != nil {
			continue
		}
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if lcfg.Kind == transport.KindMem {
			startLocalEcho(pctx, shared, lcfg.Address)
		}
		link, err := tr.Dial(pctx, lcfg.Address)
		if err != nil {
			zap.L().Warn("lane probe dial failed", zap.Int("lane", i), zap.Error(err))
			cancel()
			continue
		}
		rtt, err := transport.Probe(pctx, link, cfg.Selection.ProbeRounds)
		_ = link.Close()
		cancel()
		if err != nil {
			zap.L().Warn("lane probe failed", zap.Int("lane", i), zap.Error(err))
			continue
		}
		est.Observe(lane.Index(i), transport.Quality{RTT: rtt})
	}
}

// startLocalEcho runs a mem listener+echo pair for self-contained probing.
func startLocalEcho(ctx context.Context, shared *mem.Transport, name string) {
	l, err := shared.Listen(ctx, name)
	if err != nil {
		return
	}
	go func() {
		for {
			link, err := l.Accept(ctx)
			if err != nil {
				return
			}
			go func() { _ = transport.Echo(ctx, link) }()
		}
	}()
}
