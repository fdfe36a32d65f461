// Package command parses and runs the commands of the ptsim command line.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/ptsim/mem/vm"
)

// Name identifies a command.
type Name string

// The commands that the simulator understands.
const (
	NewProcess     Name = "np"
	KillProcess    Name = "kp"
	StoreByte      Name = "sb"
	LoadByte       Name = "lb"
	PrintFreeMap   Name = "pfm"
	PrintPageTable Name = "ppt"
)

var numArgs = map[Name]int{
	NewProcess:     2,
	KillProcess:    1,
	StoreByte:      3,
	LoadByte:       2,
	PrintFreeMap:   0,
	PrintPageTable: 1,
}

var (
	// ErrUnknownCommand is returned for a word that is not a command.
	ErrUnknownCommand = errors.New("not recognized")

	// ErrMissingArgument is returned when the command line ends before all
	// the arguments of a command are given.
	ErrMissingArgument = errors.New("missing argument")

	// ErrMalformedArgument is returned for an argument that is not a number
	// or that does not fit its field.
	ErrMalformedArgument = errors.New("malformed argument")
)

// A Command is a parsed command. Only the fields used by the command are
// set.
type Command struct {
	Name      Name
	PID       vm.PID
	PageCount int
	VAddr     vm.VAddr
	Value     byte
}

func (c Command) String() string {
	switch c.Name {
	case NewProcess:
		return fmt.Sprintf("%s %d %d", c.Name, c.PID, c.PageCount)
	case KillProcess, PrintPageTable:
		return fmt.Sprintf("%s %d", c.Name, c.PID)
	case StoreByte:
		return fmt.Sprintf("%s %d %d %d", c.Name, c.PID, c.VAddr, c.Value)
	case LoadByte:
		return fmt.Sprintf("%s %d %d", c.Name, c.PID, c.VAddr)
	default:
		return string(c.Name)
	}
}

// Next parses the command at the head of args. It returns the command and
// the arguments that follow it.
func Next(args []string) (Command, []string, error) {
	if len(args) == 0 {
		return Command{}, nil, fmt.Errorf("%w: command", ErrMissingArgument)
	}

	name := Name(args[0])

	n, ok := numArgs[name]
	if !ok {
		return Command{}, nil, fmt.Errorf("'%s' %w", args[0], ErrUnknownCommand)
	}

	if len(args) < n+1 {
		return Command{}, nil, fmt.Errorf("%w: %s takes %d",
			ErrMissingArgument, name, n)
	}

	cmd, err := parseArgs(name, args[1:n+1])
	if err != nil {
		return Command{}, nil, err
	}

	return cmd, args[n+1:], nil
}

func parseArgs(name Name, args []string) (Command, error) {
	cmd := Command{Name: name}

	if name == PrintFreeMap {
		return cmd, nil
	}

	pid, err := parseUint(args[0], 32)
	if err != nil {
		return cmd, err
	}

	cmd.PID = vm.PID(pid)

	switch name {
	case NewProcess:
		count, err := parseInt(args[1])
		if err != nil {
			return cmd, err
		}

		cmd.PageCount = count
	case StoreByte, LoadByte:
		vAddr, err := parseUint(args[1], 16)
		if err != nil {
			return cmd, err
		}

		cmd.VAddr = vm.VAddr(vAddr)

		if name == StoreByte {
			value, err := parseUint(args[2], 8)
			if err != nil {
				return cmd, err
			}

			cmd.Value = byte(value)
		}
	}

	return cmd, nil
}

// Parse parses a full command line.
func Parse(args []string) ([]Command, error) {
	var cmds []Command

	for len(args) > 0 {
		cmd, rest, err := Next(args)
		if err != nil {
			return nil, err
		}

		cmds = append(cmds, cmd)
		args = rest
	}

	return cmds, nil
}

// parseUint accepts a decimal number or a hexadecimal one prefixed by 0x.
func parseUint(s string, bitSize int) (uint64, error) {
	base := 10
	digits := s

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}

	v, err := strconv.ParseUint(digits, base, bitSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedArgument, s)
	}

	return v, nil
}

func parseInt(s string) (int, error) {
	if strings.HasPrefix(s, "-") {
		v, err := parseUint(s[1:], 31)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformedArgument, s)
		}

		return -int(v), nil
	}

	v, err := parseUint(s, 31)
	if err != nil {
		return 0, err
	}

	return int(v), nil
}
