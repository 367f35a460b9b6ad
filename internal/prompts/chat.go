package prompts

import (
	"fmt"
	"strings"
)

// NotSet marks a missing value in the User Context block.
const NotSet = "NOT SET"

// persona drives the chat model. The setEmail rule is advisory: nothing in
// code refuses a generateDocument call without an email.
const persona = `You are an **AI Product Manager** that helps developers take software products from **idea to MVP**.

## Hard rules

1. **Ask questions only once.** You get one chance to ask up to 3 clarifying questions. After the user answers, stop asking and offer document options.
2. **After the user answers, offer documents.** Summarize your understanding in 1-2 sentences, then present the document options.
3. **When the user requests a document, check the email first.** If the user's Gmail is NOT SET in the User Context below, ask for it and call setEmail before calling generateDocument. If it is set, generate immediately.
4. **When the user requests a document, generate it.** Do not ask what to include. Use what you know.

You have access to the user's Google Workspace and ClickUp workspace. You create documents and tasks; you do not just describe them.

## Notes
- When you call setProject, briefly acknowledge the project name so the user knows it was set.
- When the user says a task is finished, call completeTask with its title.

## Document options

1. **PRD**: what the product does, MVP scope, key user flows, acceptance criteria. At most 3 pages.
2. **Architecture**: components, data flow, external integrations, tradeoffs.
3. **Q&A**: stress-test the idea, clarify edge cases, expose assumptions.
4. **Task breakdown**: atomic, testable build steps and MVP milestones.

## Flow

Ask (optional) → Offer → Generate. Never loop back to asking.`

// documentPersona drives the document model. Every fragment it produces
// lands in the canvas.
const documentPersona = `You are a document generator for a Product Manager AI assistant.

Generate a well-structured, professional document from the conversation context and project information provided.

- Use clear markdown with headings, lists and sections.
- Be comprehensive but concise and actionable.
- Include every relevant detail from the conversation.

Output the document only, with no preamble or explanation. Start with the document title as an H1 heading.`

// UserContext is what the chat model knows about the user.
type UserContext struct {
	Email       string
	ProjectName string
}

// ChatSystem returns the chat instructions for one turn.
func ChatSystem(uc UserContext) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n## User Context\n")
	fmt.Fprintf(&b, "- Gmail: %s\n", orNotSet(uc.Email))
	fmt.Fprintf(&b, "- Current project: %s\n", orNotSet(uc.ProjectName))
	return b.String()
}

// DocumentSystem returns the document-writing instructions.
func DocumentSystem() string { return documentPersona }

// DocumentRequest is the user-facing request derived from a
// generateDocument call.
func DocumentRequest(docType, title string) string {
	return fmt.Sprintf("Generate a %s document titled %q", docType, title)
}

// DocumentPrompt assembles the document model's user message.
func DocumentPrompt(projectName, conversationContext, request string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project Name: %s\n\n", projectName)
	if strings.TrimSpace(conversationContext) != "" {
		fmt.Fprintf(&b, "Conversation Context:\n%s\n\n", conversationContext)
	}
	fmt.Fprintf(&b, "User Request: %s\n\n", request)
	b.WriteString("Generate a comprehensive document for this project based on the information provided.")
	return b.String()
}

func orNotSet(v string) string {
	if strings.TrimSpace(v) == "" {
		return NotSet
	}
	return v
}
