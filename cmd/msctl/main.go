// Command msctl is the out-of-core, interactive front-end for a
// multistream engine: a numbered-menu client exercising open/read/write/
// control against an in-process *multistream.Engine. It is a collaborator
// named informatively by the core's external interface contract, not part
// of the engine itself.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli"

	multistream "github.com/pcaliandro/go-multistream"
	"github.com/pcaliandro/go-multistream/internal/ctrl"
	"github.com/pcaliandro/go-multistream/internal/logging"
)

func main() {
	app := cli.NewApp()
	app.Name = "msctl"
	app.Usage = "interactive client for a multistream engine"
	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "endpoints,n",
			Value: multistream.DefaultEngineConfig().NumEndpoints,
			Usage: "number of endpoints the engine manages",
		},
		cli.BoolFlag{
			Name:  "verbose,v",
			Usage: "enable debug logging",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logConfig := logging.DefaultConfig()
	if c.Bool("verbose") {
		logConfig.Level = logging.LevelDebug
	}
	logging.SetDefault(logging.NewLogger(logConfig))

	cfg := multistream.DefaultEngineConfig()
	if n := c.Int("endpoints"); n > 0 {
		cfg.NumEndpoints = n
	}

	eng, err := multistream.NewEngine(cfg)
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}

	repl := &repl{engine: eng, sessions: make(map[int]*multistream.Session)}
	repl.run()
	return nil
}

// repl drives the numbered menu over stdin/stdout. Each opened Session is
// kept under a small integer handle assigned in open order, starting at 0.
type repl struct {
	engine   *multistream.Engine
	sessions map[int]*multistream.Session
	nextID   int
}

func (r *repl) run() {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		r.printMenu()
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			r.cmdOpen(scanner)
		case "2":
			r.cmdRead(scanner)
		case "3":
			r.cmdWrite(scanner)
		case "4":
			r.cmdControl(scanner)
		case "5":
			r.cmdStats()
		case "6":
			r.cmdClose(scanner)
		case "0", "q", "quit", "exit":
			return
		default:
			fmt.Println("unrecognized selection")
		}
	}
}

func (r *repl) printMenu() {
	fmt.Println()
	fmt.Println("1) open endpoint   2) read   3) write   4) control")
	fmt.Println("5) stats           6) close session   0) quit")
}

func (r *repl) cmdOpen(scanner *bufio.Scanner) {
	id := promptInt(scanner, "endpoint id: ")
	sess, err := r.engine.Open(id)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	handle := r.nextID
	r.nextID++
	r.sessions[handle] = sess
	fmt.Printf("opened session handle %d on endpoint %d\n", handle, id)
}

func (r *repl) cmdRead(scanner *bufio.Scanner) {
	sess, ok := r.promptSession(scanner)
	if !ok {
		return
	}
	n := promptInt(scanner, "max bytes: ")
	dst := make([]byte, n)
	got, err := sess.Read(dst)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("read %d bytes: %q\n", got, dst[:got])
}

func (r *repl) cmdWrite(scanner *bufio.Scanner) {
	sess, ok := r.promptSession(scanner)
	if !ok {
		return
	}
	fmt.Print("data: ")
	scanner.Scan()
	data := scanner.Text()

	n, err := sess.Write([]byte(data))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("accepted %d bytes\n", n)
}

func (r *repl) cmdControl(scanner *bufio.Scanner) {
	sess, ok := r.promptSession(scanner)
	if !ok {
		return
	}
	fmt.Println("commands: 1=SetPriority 3=SetBlocking 4=SetEnabled")
	cmd := promptInt(scanner, "command: ")
	arg := promptInt(scanner, "argument: ")

	if err := sess.Control(ctrl.Command(cmd), arg); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("ok")
}

func (r *repl) cmdStats() {
	stats := r.engine.Stats()
	for i := range stats.Enabled {
		if stats.BytesHigh[i] == 0 && stats.BytesLow[i] == 0 && stats.Enabled[i] {
			continue
		}
		fmt.Printf("endpoint %3d: enabled=%v bytes_high=%d bytes_low=%d waiters_high=%d waiters_low=%d\n",
			i, stats.Enabled[i], stats.BytesHigh[i], stats.BytesLow[i], stats.WaitersHigh[i], stats.WaitersLow[i])
	}
}

func (r *repl) cmdClose(scanner *bufio.Scanner) {
	handle := promptInt(scanner, "session handle: ")
	sess, ok := r.sessions[handle]
	if !ok {
		fmt.Println("no such session handle")
		return
	}
	sess.Close()
	delete(r.sessions, handle)
	fmt.Println("closed")
}

func (r *repl) promptSession(scanner *bufio.Scanner) (*multistream.Session, bool) {
	handle := promptInt(scanner, "session handle: ")
	sess, ok := r.sessions[handle]
	if !ok {
		fmt.Println("no such session handle")
		return nil, false
	}
	return sess, true
}

func promptInt(scanner *bufio.Scanner, prompt string) int {
	fmt.Print(prompt)
	scanner.Scan()
	v, _ := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	return v
}
