package commands

import (
	"fmt"
	"time"
)

// Result reports what a command did. Day is set when the view should move,
// Select when a new item should take the cursor.
type Result struct {
	Message string
	Day     time.Time
	Select  any
}

type Handlers struct {
	Goto   func(GotoArgs) (Result, error)
	Add    func(AddArgs) (Result, error)
	Event  func(EventArgs) (Result, error)
	Repeat func(RepeatArgs) (Result, error)
	Skip   func() (Result, error)
	Unskip func() (Result, error)
	Delete func() (Result, error)
	Flag   func() (Result, error)
	Note   func(NoteArgs) (Result, error)
	Import func(FileArgs) (Result, error)
	Export func(FileArgs) (Result, error)
}

func missing(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeGoto:
		if handlers.Goto == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Goto(*cmd.Goto)
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Add(*cmd.Add)
	case TypeEvent:
		if handlers.Event == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Event(*cmd.Event)
	case TypeRepeat:
		if handlers.Repeat == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Repeat(*cmd.Repeat)
	case TypeSkip, TypeUnskip, TypeDelete, TypeFlag:
		fn := map[Type]func() (Result, error){
			TypeSkip:   handlers.Skip,
			TypeUnskip: handlers.Unskip,
			TypeDelete: handlers.Delete,
			TypeFlag:   handlers.Flag,
		}[cmd.Type]
		if fn == nil {
			return Result{}, missing(cmd.Type)
		}
		return fn()
	case TypeNote:
		if handlers.Note == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Note(*cmd.Note)
	case TypeImport:
		if handlers.Import == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Import(*cmd.File)
	case TypeExport:
		if handlers.Export == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Export(*cmd.File)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
