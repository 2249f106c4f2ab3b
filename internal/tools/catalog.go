// Package tools holds the assistant's tool catalog and runs tool invocations.
package tools

import (
	"github.com/samber/lo"
	"google.golang.org/genai"
)

// Tool names understood by the dispatcher.
const (
	SearchWeb           = "search_web"
	SendWhatsAppMessage = "send_whatsapp_message"
	ManageProductivity  = "manage_productivity"
	DraftOutreach       = "draft_outreach"
	OpenApplication     = "open_application"
)

// FallbackResult is returned for invocations the catalog cannot serve.
const FallbackResult = "Action executed as requested, Sir."

var appURLs = map[string]string{
	"gmail":    "https://mail.google.com",
	"linkedin": "https://www.linkedin.com",
	"calendar": "https://calendar.google.com",
	"youtube":  "https://www.youtube.com",
	"github":   "https://www.github.com",
}

const defaultAppURL = "https://www.google.com"

// Declarations returns the function declarations advertised to the engine.
func Declarations() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name: SearchWeb,
			Parameters: object(
				"Search the web for real-time information, news, or specific research.",
				map[string]*genai.Schema{
					"query": str("The search query or URL."),
				},
				"query",
			),
		},
		{
			Name: SendWhatsAppMessage,
			Parameters: object(
				"Send a message to a specific contact via WhatsApp.",
				map[string]*genai.Schema{
					"phoneNumber": str("Recipient phone number with country code."),
					"message":     str("The text content."),
				},
				"phoneNumber", "message",
			),
		},
		{
			Name: ManageProductivity,
			Parameters: object(
				"Set reminders, block time, or prioritize tasks for the user.",
				map[string]*genai.Schema{
					"task":   str("The task description."),
					"action": enum("Type of productivity action.", "remind", "prioritize", "block_time"),
					"time":   str("Time or duration for the task."),
				},
				"task", "action",
			),
		},
		{
			Name: DraftOutreach,
			Parameters: object(
				"Draft professional emails for Gmail or connection requests/messages for LinkedIn.",
				map[string]*genai.Schema{
					"platform":  enum("Target platform.", "gmail", "linkedin"),
					"recipient": str("Name or description of the recipient."),
					"context":   str("Goal of the outreach (e.g., job application, networking)."),
					"tone":      str("Tone of the message (e.g., formal, concise)."),
				},
				"platform", "context",
			),
		},
		{
			Name: OpenApplication,
			Parameters: object(
				"Navigate to a specific digital workspace.",
				map[string]*genai.Schema{
					"appName": enum("Name of the application.", "gmail", "linkedin", "calendar", "youtube", "github"),
				},
				"appName",
			),
		},
	}
}

// Tools wraps the catalog for a session setup message.
func Tools() []*genai.Tool {
	return []*genai.Tool{{FunctionDeclarations: Declarations()}}
}

// Names lists the catalog's tool names in declaration order.
func Names() []string {
	return lo.Map(Declarations(), func(d *genai.FunctionDeclaration, _ int) string {
		return d.Name
	})
}

func lookup(name string) (*genai.FunctionDeclaration, bool) {
	return lo.Find(Declarations(), func(d *genai.FunctionDeclaration) bool {
		return d.Name == name
	})
}

func object(description string, properties map[string]*genai.Schema, required ...string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeObject,
		Description: description,
		Properties:  properties,
		Required:    required,
	}
}

func str(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description}
}

func enum(description string, values ...string) *genai.Schema {
	s := str(description)
	s.Enum = values
	return s
}
