package atom

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mediocregopher/atom/mcfg"
	"github.com/mediocregopher/atom/mcmp"
	"github.com/mediocregopher/atom/mdb/mredis"
	"github.com/mediocregopher/atom/mlog"
	"github.com/mediocregopher/atom/mrun"
)

// InstElement wires an Element's full creation-time configuration surface
// (section 6) through mcfg/mcmp/mrun, mirroring mredis.InstWire's pattern:
// params are declared against a child Component, and the ConnPool,
// BufferPool, and pair of Wires the Element needs are all built and torn
// down by Init/Shutdown hooks rather than eagerly. Unlike InstWire (which
// hands Wire a single radix pool), InstElement routes both Wires through a
// mredis.ConnPool so the element's connection ceiling is enforced the way
// section 4.4 describes, and holds a BufferPool to bound how many
// concurrent outstanding reads the element will issue at once (section 4.3
// reinterpreted as a concurrency throttle per the buffer arena note in the
// accompanying design ledger, rather than literal zero-copy reply spans).
//
// The returned *Element is not yet usable until mrun.Init runs on cmp (or
// an ancestor); call RegisterCommand only after that, same as any
// Element constructed directly via NewElement.
func InstElement(parent *mcmp.Component, nameDefault string) *Element {
	cmp := parent.Child("element")

	name := mcfg.String(cmp, "name",
		mcfg.ParamDefault(nameDefault),
		mcfg.ParamUsage("this element's unique name"))
	transport := mcfg.String(cmp, "transport",
		mcfg.ParamDefault(string(mredis.NetworkTCP)),
		mcfg.ParamUsage("redis transport: unix or tcp"))
	endpoint := mcfg.String(cmp, "endpoint",
		mcfg.ParamDefault("127.0.0.1:6379"),
		mcfg.ParamUsage("redis address for the chosen transport"))
	maxConnections := mcfg.Int(cmp, "max-connections",
		mcfg.ParamDefault(10),
		mcfg.ParamUsage("combined connection pool ceiling shared across unix and tcp"))
	connWaitMS := mcfg.Int(cmp, "conn-wait-timeout-ms",
		mcfg.ParamDefault(5000),
		mcfg.ParamUsage("how long to wait for a pooled connection before failing"))
	maxBuffers := mcfg.Int(cmp, "max-buffers",
		mcfg.ParamDefault(BufferCapDefault),
		mcfg.ParamUsage("read buffer pool ceiling"))
	bufferWaitMS := mcfg.Int(cmp, "buffer-wait-timeout-ms",
		mcfg.ParamDefault(5000),
		mcfg.ParamUsage("how long to wait for a pooled read buffer before failing"))
	languageTag := mcfg.String(cmp, "language-tag",
		mcfg.ParamDefault("go"),
		mcfg.ParamUsage("handshake language tag"))
	versionTag := mcfg.String(cmp, "version-tag",
		mcfg.ParamDefault("0.0.0"),
		mcfg.ParamUsage("handshake version tag"))
	maxLen := mcfg.Int(cmp, "max-len",
		mcfg.ParamDefault(MaxLenDefault),
		mcfg.ParamUsage("approximate MAXLEN applied to this element's own streams"))
	numUnix := mcfg.Int(cmp, "num-unix",
		mcfg.ParamDefault(0),
		mcfg.ParamUsage("unix connections to pre-warm the pool with at startup"))
	numTCP := mcfg.Int(cmp, "num-tcp",
		mcfg.ParamDefault(0),
		mcfg.ParamUsage("tcp connections to pre-warm the pool with at startup"))
	logSink := mcfg.String(cmp, "log-sink",
		mcfg.ParamDefault("stderr"),
		mcfg.ParamUsage("where local log output is written: stderr, stdout, or a file path"))

	elPtr := new(Element)

	mrun.InitHook(cmp, func(ctx context.Context) error {
		cmp.Annotate("name", *name, "transport", *transport, "endpoint", *endpoint)

		network := mredis.Network(*transport)
		unixAddr, tcpAddr := "", *endpoint
		if network == mredis.NetworkUnix {
			unixAddr, tcpAddr = *endpoint, ""
		}
		connPool := mredis.NewConnPool(unixAddr, tcpAddr, *maxConnections)
		if *numUnix > 0 || *numTCP > 0 {
			if err := connPool.Init(*numUnix, *numTCP); err != nil {
				return err
			}
		}
		elPtr.bufferPool = mredis.NewBufferPool(*maxBuffers)
		elPtr.bufferWaitTimeout = millisToDuration(*bufferWaitMS)

		connTimeout := millisToDuration(*connWaitMS)
		wire := mredis.WireFromClient(mredis.NewPooledClient(connPool, network, connTimeout))
		loopWire := mredis.WireFromClient(mredis.NewPooledClient(connPool, network, connTimeout))

		sink, err := openLogSink(*logSink)
		if err != nil {
			return err
		}

		// Mirror log messages onto the shared log stream (section 4.8) in
		// addition to the configured local sink, so an operator tailing the
		// "log" stream sees every element's output in one place.
		mlog.SetLogger(cmp, mlog.NewLogger(
			FanoutHandler(mlog.NewJSONHandler(sink), NewRedisHandler(wire, *name)),
			defaultLogLevel(),
		))
		mlog.From(cmp).Info("starting element", ctx)

		if err := initElement(elPtr, wire, loopWire, cmp, Config{
			Name:        *name,
			Transport:   network,
			Endpoint:    *endpoint,
			LanguageTag: *languageTag,
			VersionTag:  *versionTag,
			MaxLen:      *maxLen,
			NumUnix:     *numUnix,
			NumTCP:      *numTCP,
		}); err != nil {
			return err
		}
		return nil
	})
	mrun.ShutdownHook(cmp, func(ctx context.Context) error {
		mlog.From(cmp).Info("stopping element", ctx)
		if err := elPtr.Destroy(); err != nil {
			return err
		}
		return nil
	})

	return elPtr
}

// millisToDuration converts an mcfg millisecond param into a
// time.Duration, treating zero (or below) as "wait forever" per section
// 4.3/4.4's pool-timeout convention.
func millisToDuration(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// openLogSink resolves the configured log_sink (section 6) to a writer:
// "stderr"/"stdout" name the usual streams, anything else is treated as a
// file path to append to, mirroring the std::ostream* the C++ Logger took.
func openLogSink(sink string) (io.Writer, error) {
	switch sink {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		f, err := os.OpenFile(sink, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

// defaultLogLevel reads DEFAULT_LOG_LEVEL (section 6's Environment surface,
// distinct from the mcfg-declared params above) and maps it to the syslog
// level name it names, falling back to INFO if unset or unrecognized.
func defaultLogLevel() mlog.Level {
	s := os.Getenv("DEFAULT_LOG_LEVEL")
	if s == "" {
		return mlog.LevelInfo
	}
	level, ok := mlog.LevelFromString(s)
	if !ok {
		return mlog.LevelInfo
	}
	return level
}
