package notify

// MessageType identifies a user-facing notification
type MessageType int

const (
	MsgProcessing MessageType = iota
	MsgMissingInput
	MsgTransportFailure
	MsgResultReady
	MsgConfigReloaded
)

type Message struct {
	Title   string
	Body    string
	IsError bool
}

// MessageDef describes a notification and the config key that overrides it
type MessageDef struct {
	Type         MessageType
	ConfigKey    string
	Label        string
	DefaultTitle string
	DefaultBody  string
	IsError      bool
}

var MessageDefs = []MessageDef{
	{
		Type:         MsgProcessing,
		ConfigKey:    "processing",
		Label:        "Processing",
		DefaultTitle: "getsubs",
		DefaultBody:  "Fetching subtitles...",
	},
	{
		Type:         MsgMissingInput,
		ConfigKey:    "missing_input",
		Label:        "Missing input",
		DefaultTitle: "getsubs",
		DefaultBody:  "Please provide either an audio URL or upload an audio file.",
		IsError:      true,
	},
	{
		Type:         MsgTransportFailure,
		ConfigKey:    "transport_failure",
		Label:        "Request failed",
		DefaultTitle: "getsubs",
		DefaultBody:  "Error fetching subtitles.",
		IsError:      true,
	},
	{
		Type:         MsgResultReady,
		ConfigKey:    "result_ready",
		Label:        "Subtitles ready",
		DefaultTitle: "getsubs",
		DefaultBody:  "Subtitles are ready to export.",
	},
	{
		Type:         MsgConfigReloaded,
		ConfigKey:    "config_reloaded",
		Label:        "Config reloaded",
		DefaultTitle: "getsubs",
		DefaultBody:  "Configuration reloaded.",
	},
}

// DefaultMessages returns the built-in text for every message type
func DefaultMessages() map[MessageType]Message {
	msgs := make(map[MessageType]Message, len(MessageDefs))
	for _, def := range MessageDefs {
		msgs[def.Type] = Message{Title: def.DefaultTitle, Body: def.DefaultBody, IsError: def.IsError}
	}
	return msgs
}

func lookup(msgs map[MessageType]Message, mt MessageType) (Message, bool) {
	if msg, ok := msgs[mt]; ok {
		return msg, true
	}
	for _, def := range MessageDefs {
		if def.Type == mt {
			return Message{Title: def.DefaultTitle, Body: def.DefaultBody, IsError: def.IsError}, true
		}
	}
	return Message{}, false
}
