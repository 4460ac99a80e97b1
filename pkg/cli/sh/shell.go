package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/wonder.go/pkg/board"
)

// Shell provides ishell backed interactive shell driving a board.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell *ishell.Shell
	Board *board.Board
}

const (
	shellKey = "$shell"
	prompt   = "> "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&PressCmd,
		&ReleaseCmd,
		&FaultCmd,
		&GyroCmd,
		&MagCmd,
		&OrientationCmd,
		&StatsCmd,
		&TasksCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(b *board.Board) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell: ishell.New(),
		Board: b,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(fmt.Sprintf("%s %s", b.Config.BoardID(), prompt))
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Output prints v as JSON, or using text otherwise.
func Output(c *ishell.Context, v interface{}, text string) {
	if !ShellFrom(c).OutputJSON {
		c.Println(text)
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

func parseAxes(args []string) (v [3]int16, err error) {
	if len(args) != 3 {
		return v, fmt.Errorf("expect X Y Z")
	}
	for n, arg := range args {
		i, err := strconv.ParseInt(arg, 0, 16)
		if err != nil {
			return v, err
		}
		v[n] = int16(i)
	}
	return v, nil
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// PressCmd presses the button.
	PressCmd = ishell.Cmd{
		Name:    "press",
		Aliases: []string{"p"},
		Help:    "[MS] press the button, release after MS milliseconds",
		Func: func(c *ishell.Context) {
			var d time.Duration
			if len(c.Args) > 0 {
				ms, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				d = time.Duration(ms) * time.Millisecond
			}
			ShellFrom(c).Board.Press(d)
		},
	}

	// ReleaseCmd releases the button.
	ReleaseCmd = ishell.Cmd{
		Name:    "release",
		Aliases: []string{"r"},
		Help:    "release the button",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Board.Release()
		},
	}

	// FaultCmd injects a hardware fault.
	FaultCmd = ishell.Cmd{
		Name: "fault",
		Help: "KIND inject arbitration, bus, nack or spi fault",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("expect KIND"))
				return
			}
			if err := ShellFrom(c).Board.InjectFault(board.FaultKind(c.Args[0])); err != nil {
				c.Err(err)
			}
		},
	}

	// GyroCmd sets the angular rates.
	GyroCmd = ishell.Cmd{
		Name: "gyro",
		Help: "X Y Z set angular rates",
		Func: func(c *ishell.Context) {
			v, err := parseAxes(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			ShellFrom(c).Board.SetRates(v[0], v[1], v[2])
		},
	}

	// MagCmd sets the magnetic field.
	MagCmd = ishell.Cmd{
		Name: "mag",
		Help: "X Y Z set magnetic field",
		Func: func(c *ishell.Context) {
			v, err := parseAxes(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			ShellFrom(c).Board.SetField(v[0], v[1], v[2])
		},
	}

	// OrientationCmd prints the last orientation.
	OrientationCmd = ishell.Cmd{
		Name:    "orientation",
		Aliases: []string{"o"},
		Help:    "print the orientation read on the last press",
		Func: func(c *ishell.Context) {
			o, ok := ShellFrom(c).Board.LastOrientation()
			if !ok {
				c.Err(fmt.Errorf("no orientation yet"))
				return
			}
			Output(c, o, fmt.Sprintf("x=%d y=%d z=%d", o.X, o.Y, o.Z))
		},
	}

	// StatsCmd prints the board counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "print board counters",
		Func: func(c *ishell.Context) {
			st := ShellFrom(c).Board.Stats()
			Output(c, st, fmt.Sprintf(
				"rounds=%d frames=%d orientations=%d spi(sends=%d receives=%d would-blocks=%d) i2c(starts=%d stops=%d)",
				st.Rounds, st.FramesSent, st.Orientations,
				st.SPI.Sends, st.SPI.Receives, st.SPI.WouldBlocks,
				st.I2CStarts, st.I2CStops))
		},
	}

	// TasksCmd prints the executor tasks.
	TasksCmd = ishell.Cmd{
		Name: "tasks",
		Help: "print firmware tasks",
		Func: func(c *ishell.Context) {
			tasks := ShellFrom(c).Board.Stats().Tasks
			lines := make([]string, len(tasks))
			for n, task := range tasks {
				state := "running"
				if task.Err != nil {
					state = "failed: " + task.Err.Error()
				} else if task.Done {
					state = "done"
				}
				lines[n] = fmt.Sprintf("%-12s polls=%-8d %s", task.Name, task.Polls, state)
			}
			Output(c, tasks, strings.Join(lines, "\n"))
		},
	}
)
