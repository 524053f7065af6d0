// Command swazi-asyncrt-demo exercises the asyncrt runtime by hand: a
// timer round trip, a TCP server/client pair that sends one message (the
// server reports the accepted connection and does not echo), and a promise
// chain,
// each runnable as its own subcommand against a freshly constructed
// runtime (§4.11).
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	asyncrt "github.com/swazilang/asyncrt"
	"github.com/swazilang/asyncrt/internal/builtins"
)

var dsn string

func main() {
	root := &cobra.Command{
		Use:   "swazi-asyncrt-demo",
		Short: "Manual exercises for the swazi async runtime substrate",
	}
	root.PersistentFlags().StringVar(&dsn, "diagnostics-dsn", "", "optional SQLite path for the loop-events journal")

	root.AddCommand(timerCmd(), tcpEchoCmd(), promiseCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func timerCmd() *cobra.Command {
	var delayMs int
	cmd := &cobra.Command{
		Use:   "timer",
		Short: "Schedule a setTimeout and wait for it to fire",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := asyncrt.New(asyncrt.Config{DiagnosticsDSN: dsn})
			if err != nil {
				return err
			}
			defer rt.Stop()

			start := time.Now()
			_, err = rt.Modules["timers"]["setTimeout"](delayMs, func(...any) {
				fmt.Printf("timer fired after %s\n", time.Since(start))
			})
			if err != nil {
				return err
			}
			rt.RunEventLoop()
			return nil
		},
	}
	cmd.Flags().IntVar(&delayMs, "delay-ms", 200, "timer delay in milliseconds")
	return cmd
}

func tcpEchoCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "tcp-echo",
		Short: "Run a TCP server, connect to it, and send one message (no echo)",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := asyncrt.New(asyncrt.Config{DiagnosticsDSN: dsn})
			if err != nil {
				return err
			}
			defer rt.Stop()

			tcp := rt.Modules["tcp"]
			onConn := func(...any) {
				fmt.Println("connection accepted")
			}
			srvAny, err := tcp["createServer"]()
			if err != nil {
				return err
			}
			srv := srvAny.(builtins.Module)
			defer srv["close"]()

			host, portStr, err := net.SplitHostPort(addr)
			if err != nil {
				return err
			}
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return err
			}
			if _, err := srv["listen"](port, host, onConn); err != nil {
				return err
			}

			connAny, err := tcp["connect"](addr, false, false)
			if err != nil {
				return err
			}
			conn := connAny.(builtins.Module)
			if _, err := conn["write"]([]byte("ping")); err != nil {
				return err
			}

			time.AfterFunc(100*time.Millisecond, func() {
				rt.ScheduleCallback(func() { conn["close"]() })
			})
			rt.RunEventLoop()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:17890", "address to listen on and connect to")
	return cmd
}

func promiseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promise",
		Short: "Run fs.promises.writeFile/readFile through a promise chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := asyncrt.New(asyncrt.Config{DiagnosticsDSN: dsn})
			if err != nil {
				return err
			}
			defer rt.Stop()

			dir, err := os.MkdirTemp("", "swazi-asyncrt-demo-*")
			if err != nil {
				return err
			}
			defer os.RemoveAll(dir)
			path := dir + "/demo.txt"

			fs := rt.Modules["fs"]
			if _, err := fs["writeFile"](path, "hello from the demo"); err != nil {
				return err
			}

			v, err := fs["readFile"](path)
			if err != nil {
				return err
			}
			type thenable interface{ Then(func(any)) }
			v.(thenable).Then(func(val any) {
				fmt.Printf("read back: %s\n", val.([]byte))
			})

			rt.RunEventLoop()
			return nil
		},
	}
	return cmd
}
