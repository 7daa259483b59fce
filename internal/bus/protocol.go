package bus

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Command names understood by the daemon
const (
	CmdSubmit     = "submit"
	CmdStatus     = "status"
	CmdExport     = "export"
	CmdTranscript = "transcript"
	CmdToggle     = "toggle"
	CmdVersion    = "version"
	CmdQuit       = "quit"
)

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArguments   = errors.New("bad arguments")
)

// Command is one request line: a name followed by its arguments. The last
// argument runs to the end of the line so it may contain spaces.
type Command struct {
	Name string
	Args []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

func SubmitURL(u string) Command {
	return Command{Name: CmdSubmit, Args: []string{"url", u}}
}

func SubmitFile(path string) Command {
	return Command{Name: CmdSubmit, Args: []string{"file", path}}
}

func Export(format, dir string) Command {
	return Command{Name: CmdExport, Args: []string{format, dir}}
}

func Simple(name string) Command {
	return Command{Name: name}
}

func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, ErrEmptyCommand
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case CmdSubmit:
		kind, target, _ := strings.Cut(rest, " ")
		if kind != "url" && kind != "file" {
			return Command{}, fmt.Errorf("%w: submit expects url or file, got %q", ErrBadArguments, kind)
		}
		return Command{Name: name, Args: []string{kind, strings.TrimSpace(target)}}, nil

	case CmdExport:
		format, dir, _ := strings.Cut(rest, " ")
		if format == "" {
			return Command{}, fmt.Errorf("%w: export expects a format", ErrBadArguments)
		}
		return Command{Name: name, Args: []string{format, strings.TrimSpace(dir)}}, nil

	case CmdStatus, CmdTranscript, CmdToggle, CmdVersion, CmdQuit:
		return Command{Name: name}, nil

	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}

// Reply kinds
const (
	KindOK     = "OK"
	KindStatus = "STATUS"
	KindErr    = "ERR"
)

// Field is one key=value pair of a STATUS reply
type Field struct {
	Key   string
	Value string
}

type Reply struct {
	Kind   string
	Text   string
	Fields map[string]string
}

// RemoteError is an ERR reply surfaced as an error
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Code + ": " + e.Message
}

// Err returns the reply as an error when it is an ERR reply
func (r Reply) Err() error {
	if r.Kind != KindErr {
		return nil
	}
	code, msg, _ := strings.Cut(r.Text, ": ")
	return &RemoteError{Code: code, Message: msg}
}

func OKReply(text string) string {
	return KindOK + " " + text
}

func ErrReply(code string, err error) string {
	return fmt.Sprintf("%s %s: %s", KindErr, code, strings.ReplaceAll(err.Error(), "\n", " "))
}

func StatusReply(fields ...Field) string {
	var b strings.Builder
	b.WriteString(KindStatus)
	for _, f := range fields {
		b.WriteString(" ")
		b.WriteString(f.Key)
		b.WriteString("=")
		b.WriteString(quoteValue(f.Value))
	}
	return b.String()
}

func quoteValue(v string) string {
	if v == "" || strings.ContainsAny(v, " \t\r\n\"=\\") {
		return strconv.Quote(v)
	}
	return v
}

func ParseReply(line string) (Reply, error) {
	line = strings.TrimRight(line, "\r\n")
	kind, rest, _ := strings.Cut(line, " ")

	switch kind {
	case KindOK, KindErr:
		return Reply{Kind: kind, Text: rest}, nil
	case KindStatus:
		fields, err := parseFields(rest)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Kind: kind, Text: rest, Fields: fields}, nil
	default:
		return Reply{}, fmt.Errorf("malformed reply: %q", line)
	}
}

func parseFields(s string) (map[string]string, error) {
	fields := make(map[string]string)
	for {
		s = strings.TrimLeft(s, " ")
		if s == "" {
			return fields, nil
		}

		key, rest, ok := strings.Cut(s, "=")
		if !ok || key == "" || strings.Contains(key, " ") {
			return nil, fmt.Errorf("malformed field in %q", s)
		}

		if strings.HasPrefix(rest, `"`) {
			quoted, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return nil, fmt.Errorf("malformed value for %s: %w", key, err)
			}
			value, _ := strconv.Unquote(quoted)
			fields[key] = value
			s = rest[len(quoted):]
			continue
		}

		value, remaining, _ := strings.Cut(rest, " ")
		fields[key] = value
		s = remaining
	}
}
