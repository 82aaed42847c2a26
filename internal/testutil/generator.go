package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const budgetAccount = "Assets:Bank:Checking"

var expenses = []string{
	"Expenses:Food:Groceries",
	"Expenses:Food:Restaurants",
	"Expenses:Transport:Fuel",
	"Expenses:Utilities:Electricity",
	"Expenses:Utilities:Water",
	"Expenses:Housing:Rent",
}

// Categories returns the envelope categories GenerateJournal allocates to.
func Categories() []string {
	return []string{"Food", "Transport", "Utilities", "Expenses:Housing:Rent"}
}

// GenerateJournal writes a journal with envelope settings, one allocation
// per category and month, a salary every month and numTransactions
// expense transactions spread over consecutive months. Every fifth
// expense is paid in EUR at a posting price.
func GenerateJournal(numTransactions int) string {
	var sb strings.Builder

	sb.WriteString("option \"operating_currency\" \"USD\"\n\n")
	fmt.Fprintf(&sb, "2020-01-01 open %s USD\n", budgetAccount)
	fmt.Fprintf(&sb, "2020-01-01 custom \"envelope\" \"budget account\" \"%s\"\n", budgetAccount)
	sb.WriteString("2020-01-01 custom \"envelope\" \"income account\" \"Income:Salary\"\n")
	sb.WriteString("2020-01-01 custom \"envelope\" \"mapping\" \"Expenses:Food:.*\" \"Food\"\n")
	sb.WriteString("2020-01-01 custom \"envelope\" \"mapping\" \"Expenses:Transport:.*\" \"Transport\"\n")
	sb.WriteString("2020-01-01 custom \"envelope\" \"mapping\" \"Expenses:Utilities:.*\" \"Utilities\"\n")
	sb.WriteString("2020-01-01 price EUR 1.10 USD\n\n")

	months := numTransactions/30 + 1
	for m := 0; m < months; m++ {
		year, month := 2020+m/12, m%12+1
		for i, category := range Categories() {
			fmt.Fprintf(&sb, "%04d-%02d-01 custom \"envelope\" \"allocate\" \"%s\" %d\n", year, month, category, (i+1)*100)
		}
		fmt.Fprintf(&sb, "%04d-%02d-01 * \"Employer\" \"Salary\"\n", year, month)
		fmt.Fprintf(&sb, "  %s  3000.00 USD\n", budgetAccount)
		sb.WriteString("  Income:Salary\n\n")
	}

	for i := 0; i < numTransactions; i++ {
		m := i / 30
		year, month := 2020+m/12, m%12+1
		day := i%28 + 1

		account := expenses[i%len(expenses)]
		amount := (i%1000 + 1) * 10

		fmt.Fprintf(&sb, "%04d-%02d-%02d * \"Payee %d\" \"Transaction note\"\n", year, month, day, i)
		if i%5 == 0 {
			fmt.Fprintf(&sb, "  %s  %d.%02d EUR @ 1.10 USD\n", account, amount/100, amount%100)
		} else {
			fmt.Fprintf(&sb, "  %s  %d.%02d USD\n", account, amount/100, amount%100)
		}
		fmt.Fprintf(&sb, "  %s\n\n", budgetAccount)
	}

	return sb.String()
}

// GenerateIncludeTree writes numFiles generated journals and a main file
// including all of them. It returns the main file's path.
func GenerateIncludeTree(tmpDir string, numFiles, txPerFile int) (string, error) {
	var mainContent strings.Builder

	for i := 0; i < numFiles; i++ {
		filename := fmt.Sprintf("file%d.beancount", i)
		fmt.Fprintf(&mainContent, "include \"%s\"\n", filename)

		content := GenerateJournal(txPerFile)
		filePath := filepath.Join(tmpDir, filename)
		if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
			return "", err
		}
	}

	mainPath := filepath.Join(tmpDir, "main.beancount")
	if err := os.WriteFile(mainPath, []byte(mainContent.String()), 0644); err != nil {
		return "", err
	}

	return mainPath, nil
}
