package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Bank account tool name and parameter names.
const (
	BankAccountName       = "create_bank_account"
	ParamFirstName        = "name"
	ParamSecondName       = "second_name"
	ParamIDNumber         = "id_number"
	bankAccountPrefix     = "ACC"
	bankAccountIDSuffixes = 6
)

var (
	lettersPattern  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	idNumberPattern = regexp.MustCompile(`^\d{6,12}$`)
)

// BankAccount creates a bank account for a customer.
type BankAccount struct{}

// Schema implements Tool.
func (BankAccount) Schema() Schema {
	return NewSchema(BankAccountName, "Create a new bank account for a customer from their first name, last name, and ID number").
		AddParam(ParamFirstName, "string", "Customer's first name", true).
		AddParam(ParamSecondName, "string", "Customer's last name", true).
		AddParam(ParamIDNumber, "string", "Customer's ID number (6-12 digits)", true).
		Build()
}

// Invoke implements Tool.
func (b BankAccount) Invoke(_ context.Context, args map[string]string) (string, error) {
	return b.Create(args[ParamFirstName], args[ParamSecondName], args[ParamIDNumber]), nil
}

// Create validates the customer data and returns either a confirmation or an error message.
func (BankAccount) Create(name, secondName, idNumber string) string {
	name = strings.TrimSpace(name)
	secondName = strings.TrimSpace(secondName)
	idNumber = strings.TrimSpace(idNumber)

	switch {
	case name == "":
		return "Error: First name is required"
	case !lettersPattern.MatchString(name):
		return "Error: First name should contain only letters"
	case secondName == "":
		return "Error: Last name is required"
	case !lettersPattern.MatchString(secondName):
		return "Error: Last name should contain only letters"
	case idNumber == "":
		return "Error: ID number is required"
	case !idNumberPattern.MatchString(idNumber):
		return "Error: ID number should be 6-12 digits"
	}

	return fmt.Sprintf("Bank account created successfully!\nAccount Number: %s\nCustomer: %s %s\nID: %s",
		AccountNumber(name, idNumber), name, secondName, idNumber)
}

// AccountNumber derives the account number from a validated first name and id number.
func AccountNumber(name, idNumber string) string {
	suffix := idNumber
	if len(suffix) > bankAccountIDSuffixes {
		suffix = suffix[len(suffix)-bankAccountIDSuffixes:]
	}
	return fmt.Sprintf("%s%s%02d", bankAccountPrefix, suffix, len(name))
}

// IsToolError reports whether a tool's text output is a validation error.
func IsToolError(output string) bool {
	return strings.HasPrefix(output, "Error: ")
}
