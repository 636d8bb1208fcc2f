package store

import "github.com/metalagman/flowchat/internal/model"

// DefaultAgents returns the agents seeded into an empty collection.
func DefaultAgents() []model.AgentRecord {
	return []model.AgentRecord{
		{
			ID:          "banking_assistant",
			Name:        "Banking Assistant",
			Description: "Specialized in bank account creation and banking services",
			SystemPrompt: `You are a helpful banking assistant that specializes in creating bank accounts.

When users provide their information (first name, last name, and ID number), you should help them create a bank account.

If they provide information like "John Smith 123456789", recognize this as a bank account creation request.

Be friendly and helpful, and guide users through the account creation process.`,
			Tools:  []string{"create_bank_account"},
			Flows:  []string{"bank_account_creation"},
			Active: true,
		},
		{
			ID:          "customer_support",
			Name:        "Customer Support",
			Description: "General customer support and inquiry handling",
			SystemPrompt: `You are a helpful customer support assistant. You can help with:
- General inquiries
- Product information
- Troubleshooting
- Account questions

Be professional, empathetic, and solution-oriented in your responses.`,
			Tools:  []string{},
			Flows:  []string{"customer_support_flow"},
			Active: true,
		},
		{
			ID:          "sales_assistant",
			Name:        "Sales Assistant",
			Description: "Product recommendations and sales support",
			SystemPrompt: `You are a knowledgeable sales assistant. You help customers:
- Discover products that meet their needs
- Understand product features and benefits
- Make informed purchasing decisions
- Process orders and handle sales inquiries

Be consultative, informative, and customer-focused.`,
			Tools:  []string{},
			Flows:  []string{"sales_flow"},
			Active: true,
		},
	}
}
