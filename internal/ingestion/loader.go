package ingestion

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/Daffaariff/nawatech-chatbot/pkg/logger"
)

// FaqEntry is one validated question/answer row from the FAQ corpus.
type FaqEntry struct {
	Question string
	Answer   string
}

// LoadFAQData reads the FAQ CSV and returns its validated rows. The file must
// carry a header with "question" and "answer" columns; rows with either field
// empty are dropped. A missing column is an error and the corpus is unusable.
func LoadFAQData(path string) ([]FaqEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FAQ file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse FAQ CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("FAQ CSV is empty")
	}

	questionIdx, answerIdx := -1, -1
	for i, col := range records[0] {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "question":
			questionIdx = i
		case "answer":
			answerIdx = i
		}
	}

	if questionIdx < 0 || answerIdx < 0 {
		missing := []string{}
		if questionIdx < 0 {
			missing = append(missing, "question")
		}
		if answerIdx < 0 {
			missing = append(missing, "answer")
		}
		return nil, fmt.Errorf("CSV is missing required columns: %s", strings.Join(missing, ", "))
	}

	entries := make([]FaqEntry, 0, len(records)-1)
	dropped := 0

	for _, row := range records[1:] {
		if questionIdx >= len(row) || answerIdx >= len(row) {
			dropped++
			continue
		}

		question := strings.TrimSpace(row[questionIdx])
		answer := strings.TrimSpace(row[answerIdx])

		if question == "" || answer == "" {
			dropped++
			continue
		}

		entries = append(entries, FaqEntry{Question: question, Answer: answer})
	}

	if dropped > 0 {
		logger.Warn("Dropped FAQ rows with missing values", zap.Int("count", dropped))
	}

	logger.Info("Loaded FAQs from CSV",
		zap.String("path", path),
		zap.Int("count", len(entries)),
	)

	return entries, nil
}

// BuildDocument renders one FAQ entry as a flat text document for embedding.
func BuildDocument(entry FaqEntry) string {
	return fmt.Sprintf("Q: %s\nA: %s", entry.Question, entry.Answer)
}

// BuildDocuments renders all entries, order-preserving, one document per entry.
func BuildDocuments(entries []FaqEntry) []string {
	documents := make([]string, 0, len(entries))
	for _, entry := range entries {
		documents = append(documents, BuildDocument(entry))
	}

	logger.Info("Created documents from FAQs", zap.Int("count", len(documents)))

	return documents
}
