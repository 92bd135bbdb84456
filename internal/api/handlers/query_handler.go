package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Daffaariff/nawatech-chatbot/internal/qa"
	"github.com/Daffaariff/nawatech-chatbot/internal/storage/sqlite"
	"github.com/Daffaariff/nawatech-chatbot/pkg/logger"
)

type QueryHandler struct {
	engine *qa.Engine
	db     *sqlite.Client
}

func NewQueryHandler(engine *qa.Engine, db *sqlite.Client) *QueryHandler {
	return &QueryHandler{
		engine: engine,
		db:     db,
	}
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result := h.engine.GenerateResponse(c.Context(), req.Query)

	response := fiber.Map{
		"id":         result.ID,
		"answer":     result.Answer,
		"evaluation": result.Evaluation,
		"latency_ms": result.LatencyMS,
	}
	if result.Evaluation != nil {
		response["score_band"] = ScoreBand(result.Evaluation.Scores["overall"])
	}
	if result.Error != "" {
		response["error"] = result.Error
	}

	return c.JSON(response)
}

func (h *QueryHandler) GetQueryHistory(c *fiber.Ctx) error {
	if h.db == nil {
		return c.JSON(fiber.Map{"history": []interface{}{}})
	}

	limit := c.QueryInt("limit", 20)

	records, err := h.db.GetRecentQueries(limit)
	if err != nil {
		logger.Error("Failed to load query history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load query history",
		})
	}

	history := make([]fiber.Map, 0, len(records))
	for _, record := range records {
		history = append(history, fiber.Map{
			"id":            record.ID,
			"query":         record.QueryText,
			"answer":        record.Answer,
			"method":        record.EvaluationMethod,
			"overall_score": record.OverallScore,
			"score_band":    ScoreBand(record.OverallScore),
			"latency_ms":    record.LatencyMS,
		})
	}

	return c.JSON(fiber.Map{"history": history})
}

// ScoreBand maps an overall evaluation score to the display severity band.
func ScoreBand(overall float64) string {
	switch {
	case overall >= 4.0:
		return "high"
	case overall >= 3.0:
		return "medium"
	default:
		return "low"
	}
}
