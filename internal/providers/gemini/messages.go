package gemini

import (
	"strings"

	"google.golang.org/genai"

	"jarvis/internal/domain"
)

type clientMessage struct {
	Setup         *genai.LiveClientSetup        `json:"setup,omitempty"`
	ClientContent *genai.LiveClientContent      `json:"clientContent,omitempty"`
	RealtimeInput *realtimeInput                `json:"realtimeInput,omitempty"`
	ToolResponse  *genai.LiveClientToolResponse `json:"toolResponse,omitempty"`
}

// realtimeInput carries audio that is already base64 text, so it skips
// genai.Blob and its []byte payload.
type realtimeInput struct {
	Audio *inlineData `json:"audio,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type serverMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *serverContent `json:"serverContent,omitempty"`
	ToolCall      *struct {
		FunctionCalls []*genai.FunctionCall `json:"functionCalls"`
	} `json:"toolCall,omitempty"`
}

type serverContent struct {
	ModelTurn *struct {
		Parts []struct {
			Text       string      `json:"text,omitempty"`
			InlineData *inlineData `json:"inlineData,omitempty"`
		} `json:"parts"`
	} `json:"modelTurn,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type transcription struct {
	Text string `json:"text"`
}

// translate maps a server frame onto the provider-neutral message. It reports
// false when the frame carries nothing the session acts on.
func (m serverMessage) translate() (domain.ServerMessage, bool) {
	var out domain.ServerMessage

	if content := m.ServerContent; content != nil {
		if content.ModelTurn != nil {
			for _, part := range content.ModelTurn.Parts {
				if part.InlineData == nil || part.InlineData.Data == "" {
					continue
				}
				if !strings.HasPrefix(part.InlineData.MIMEType, "audio/") {
					continue
				}
				out.AudioChunks = append(out.AudioChunks, part.InlineData.Data)
			}
		}
		out.Interrupted = content.Interrupted
		out.TurnComplete = content.TurnComplete
		if content.InputTranscription != nil {
			out.InputText = content.InputTranscription.Text
		}
		if content.OutputTranscription != nil {
			out.OutputText = content.OutputTranscription.Text
		}
	}

	if m.ToolCall != nil {
		for _, call := range m.ToolCall.FunctionCalls {
			if call == nil {
				continue
			}
			out.ToolInvocations = append(out.ToolInvocations, domain.ToolInvocation{
				ID:        call.ID,
				Name:      call.Name,
				Arguments: call.Args,
			})
		}
	}

	empty := len(out.AudioChunks) == 0 &&
		len(out.ToolInvocations) == 0 &&
		!out.Interrupted &&
		!out.TurnComplete &&
		out.InputText == "" &&
		out.OutputText == ""
	return out, !empty
}
