package pipeline

import (
	"fmt"
	"strings"
)

// DefaultPersona is used when a chat turn carries no system prompt.
const DefaultPersona = `You are a helpful banking assistant that specializes in creating bank accounts.

When users provide their information (first name, last name, and ID number), you should help them create a bank account.

If they provide information like "John Smith 123456789", recognize this as a bank account creation request.

Be friendly and helpful, and guide users through the account creation process.`

// ApologyReply replaces the reply of any chat turn that failed internally.
const ApologyReply = "I apologize, but I encountered an error while processing your request. Please try again."

const workflowTemplate = `{
  "workflow_name": "string - descriptive name for the workflow",
  "description": "string - brief description of what this workflow does",
  "version": "string - version number (e.g., '1.0')",
  "created_at": "string - ISO timestamp",
  "steps": [
    {
      "step_id": "string - unique identifier",
      "name": "string - step name",
      "description": "string - what this step does",
      "type": "string - type of step (input, processing, output, decision, etc.)",
      "parameters": "object - any parameters needed for this step",
      "next_step": "string - ID of next step or null for end"
    }
  ],
  "flow_logic": "string - description of how steps connect and flow",
  "system_instructions": "string - instructions for AI behavior when following this workflow",
  "triggers": ["array of strings - what triggers this workflow"],
  "expected_outputs": ["array of strings - what outputs this workflow produces"]
}`

func workflowPrompt(userInput string) string {
	var b strings.Builder
	b.WriteString("You are an AI workflow designer. Create a structured workflow configuration in JSON format based on the user's description.\n\n")
	fmt.Fprintf(&b, "User Input: %s\n\n", userInput)
	b.WriteString("Create a JSON configuration that follows this EXACT format:\n")
	b.WriteString(workflowTemplate)
	b.WriteString(`

Requirements:
1. Use the exact field names and structure shown above
2. Fill in realistic values based on the user's description
3. Create 2-5 logical steps for the workflow
4. Ensure steps have proper flow with next_step references that point at step_id values of this document, or null for the last step
5. Make system_instructions detailed and actionable
6. Include relevant triggers and expected outputs

Respond ONLY with valid JSON, no additional text, no markdown code blocks, no explanation.
Start directly with { and end with }.`)
	return b.String()
}
