package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/agenda/internal/date"
	"github.com/sandeepkv93/agenda/internal/model"
)

type Type string

const (
	TypeGoto   Type = "goto"
	TypeAdd    Type = "add"
	TypeEvent  Type = "event"
	TypeRepeat Type = "repeat"
	TypeSkip   Type = "skip"
	TypeUnskip Type = "unskip"
	TypeDelete Type = "delete"
	TypeFlag   Type = "flag"
	TypeNote   Type = "note"
	TypeImport Type = "import"
	TypeExport Type = "export"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
	ErrCodeNoSelection     ErrorCode = "no_selection"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

type GotoArgs struct {
	// Day is as typed; it is resolved against the clock at execution.
	Day string
}

// AddArgs describes an appointment on the viewed day. Start is an offset
// from midnight.
type AddArgs struct {
	Start time.Duration
	Dur   time.Duration
	Mesg  string
}

type EventArgs struct {
	Mesg string
}

// RepeatArgs carries a rule without its start anchor. None drops the rule.
type RepeatArgs struct {
	None  bool
	Type  model.RecurrenceType
	Freq  int
	Until string
}

type NoteArgs struct {
	Text string
}

type FileArgs struct {
	Path string
}

type Command struct {
	Type   Type
	Raw    string
	Goto   *GotoArgs
	Add    *AddArgs
	Event  *EventArgs
	Repeat *RepeatArgs
	Note   *NoteArgs
	File   *FileArgs
}

// Parse reads one palette line. A leading slash is optional.
func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeGoto:
		return parseGoto(input, args)
	case TypeAdd:
		return parseAdd(input, args)
	case TypeEvent:
		return parseEvent(input, args)
	case TypeRepeat:
		return parseRepeat(input, args)
	case TypeSkip, TypeUnskip, TypeDelete, TypeFlag:
		if len(args) > 0 {
			return Command{}, invalid("%s takes no arguments", head)
		}
		return Command{Type: Type(head), Raw: input}, nil
	case TypeNote:
		return Command{Type: TypeNote, Raw: input, Note: &NoteArgs{Text: strings.Join(args, " ")}}, nil
	case TypeImport, TypeExport:
		if len(args) != 1 {
			return Command{}, invalid("%s requires one file", head)
		}
		return Command{Type: Type(head), Raw: input, File: &FileArgs{Path: args[0]}}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseGoto(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("goto requires a day")
	}
	if _, err := date.ParseDay(args[0], time.Now()); err != nil {
		return Command{}, invalid("goto: %v", err)
	}
	return Command{Type: TypeGoto, Raw: raw, Goto: &GotoArgs{Day: args[0]}}, nil
}

// parseAdd accepts START, START-END or START+DURATION followed by the
// message, e.g. "add 09:30-10:15 standup" or "add 14:00+1h30m review".
func parseAdd(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("add requires a time and a message")
	}
	start, dur, err := parseSpan(args[0])
	if err != nil {
		return Command{}, err
	}
	mesg := strings.TrimSpace(strings.Join(args[1:], " "))
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Start: start, Dur: dur, Mesg: mesg}}, nil
}

func parseSpan(s string) (time.Duration, time.Duration, error) {
	if head, tail, ok := strings.Cut(s, "+"); ok {
		start, err := date.ParseClock(head)
		if err != nil {
			return 0, 0, invalid("add: %v", err)
		}
		dur, err := time.ParseDuration(tail)
		if err != nil || dur < 0 {
			return 0, 0, invalid("add: bad duration %q", tail)
		}
		return start, dur, nil
	}
	if head, tail, ok := strings.Cut(s, "-"); ok {
		start, err := date.ParseClock(head)
		if err != nil {
			return 0, 0, invalid("add: %v", err)
		}
		end, err := date.ParseClock(tail)
		if err != nil {
			return 0, 0, invalid("add: %v", err)
		}
		if end < start {
			return 0, 0, invalid("add: end %s before start %s", tail, head)
		}
		return start, end - start, nil
	}
	start, err := date.ParseClock(s)
	if err != nil {
		return 0, 0, invalid("add: %v", err)
	}
	return start, 0, nil
}

func parseEvent(raw string, args []string) (Command, error) {
	mesg := strings.TrimSpace(strings.Join(args, " "))
	if mesg == "" {
		return Command{}, invalid("event requires a message")
	}
	return Command{Type: TypeEvent, Raw: raw, Event: &EventArgs{Mesg: mesg}}, nil
}

// parseRepeat accepts "none" or TYPE [every N] [until DAY].
func parseRepeat(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, invalid("repeat requires a frequency")
	}
	if strings.EqualFold(args[0], "none") {
		if len(args) > 1 {
			return Command{}, invalid("repeat none takes no options")
		}
		return Command{Type: TypeRepeat, Raw: raw, Repeat: &RepeatArgs{None: true}}, nil
	}
	typ, err := model.ParseRecurrenceType(args[0])
	if err != nil {
		return Command{}, invalid("repeat: %v", err)
	}
	out := &RepeatArgs{Type: typ, Freq: 1}
	rest := args[1:]
	for len(rest) > 0 {
		if len(rest) < 2 {
			return Command{}, invalid("repeat: %s needs a value", rest[0])
		}
		switch strings.ToLower(rest[0]) {
		case "every":
			n, err := strconv.Atoi(rest[1])
			if err != nil || n < 1 {
				return Command{}, invalid("repeat: bad interval %q", rest[1])
			}
			out.Freq = n
		case "until":
			if _, err := date.ParseDay(rest[1], time.Now()); err != nil {
				return Command{}, invalid("repeat: %v", err)
			}
			out.Until = rest[1]
		default:
			return Command{}, invalid("repeat: unknown option %q", rest[0])
		}
		rest = rest[2:]
	}
	return Command{Type: TypeRepeat, Raw: raw, Repeat: out}, nil
}
