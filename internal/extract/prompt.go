package extract

import "fmt"

// extractionPrompt is the fixed instruction sent with every extraction
// request. The model is untrusted to comply; ParseExtractorOutput repairs
// fencing and header violations defensively.
const extractionPrompt = `Extract ALL transactions from this bank statement as CSV.
Headers: date,description,amount
- date: YYYY-MM-DD
- amount: positive=credit/deposit, negative=debit/withdrawal
- Combine separate debit/credit columns
- Skip balances, totals, headers, empty rows
- Quote descriptions containing commas
Return ONLY CSV. No markdown. No explanation.`

// textLabel prefixes statement text so the model knows what it is looking at.
func textLabel(fileName string) string {
	return fmt.Sprintf("Bank statement: %s", fileName)
}

// chunkLabel additionally situates a fragment within the whole statement.
func chunkLabel(fileName string, chunkNum, totalChunks int) string {
	return fmt.Sprintf("Bank statement: %s (chunk %d/%d)", fileName, chunkNum, totalChunks)
}
