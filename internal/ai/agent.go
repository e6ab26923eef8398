package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-biz-server/internal/database"
	"go-biz-server/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

// Agent answers the admin's questions about the businesses by calling
// tools backed by the database.
type Agent struct {
	db     *gorm.DB
	apiKey string
}

func NewAgent(db *gorm.DB, apiKey string) *Agent {
	return &Agent{db: db, apiKey: apiKey}
}

func (a *Agent) Run(ctx context.Context, userMessage string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel("gemini-2.0-flash-001")

	today := time.Now().Format("2006-01-02")
	systemPrompt := fmt.Sprintf(`SYSTEM: Today is %s. You are the assistant for a small business group (Farm, Pool, PS Station, Snack Center).

RULES:
1. STOCK: If the user asks about snack prices, stock or items, call 'check_inventory' and read the JSON to answer. Do NOT say you cannot see the inventory.
2. MONEY: If the user asks about income, expenses or profit of any business, call 'get_business_summary'.
3. SNACK SALES: If the user asks for snack revenue in a date range, use 'get_snack_revenue'.

USER: %s`, today, userMessage)

	model.Tools = []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        "check_inventory",
					Description: "Get the full snack inventory list with Name, Price and available Stock.",
				},
				{
					Name:        "get_business_summary",
					Description: "Get income, expenses and profit per business unit, all time.",
				},
				{
					Name:        "get_snack_revenue",
					Description: "Get completed snack center revenue for a date range.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
							"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
						},
						Required: []string{"start_date", "end_date"},
					},
				},
			},
		},
	}

	session := model.StartChat()

	resp, err := session.SendMessage(ctx, genai.Text(systemPrompt))
	if err != nil {
		return "", err
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if funcCall, ok := part.(genai.FunctionCall); ok {
			switch funcCall.Name {
			case "check_inventory":
				return a.executeCheckInventory(ctx, session)
			case "get_business_summary":
				return a.executeBusinessSummary(ctx, session)
			case "get_snack_revenue":
				return a.executeSnackRevenue(ctx, session, funcCall)
			}
		}
	}

	return printResponse(resp), nil
}

func (a *Agent) executeCheckInventory(ctx context.Context, session *genai.ChatSession) (string, error) {
	var snacks []models.Snack
	a.db.Where("is_active = ?", true).Order("name").Find(&snacks)

	type simpleSnack struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
		Stock int     `json:"stock"`
	}
	var list []simpleSnack
	for _, s := range snacks {
		list = append(list, simpleSnack{Name: s.Name, Price: s.Price, Stock: s.QuantityAvailable})
	}
	jsonBytes, _ := json.Marshal(list)

	resp, err := session.SendMessage(ctx, genai.FunctionResponse{
		Name:     "check_inventory",
		Response: map[string]interface{}{"inventory": string(jsonBytes)},
	})
	if err != nil {
		return "", err
	}
	return printResponse(resp), nil
}

func (a *Agent) executeBusinessSummary(ctx context.Context, session *genai.ChatSession) (string, error) {
	entries, err := database.Ledger(a.db)
	if err != nil {
		return "", err
	}
	jsonBytes, _ := json.Marshal(database.Summarize(entries))

	resp, err := session.SendMessage(ctx, genai.FunctionResponse{
		Name:     "get_business_summary",
		Response: map[string]interface{}{"summary": string(jsonBytes)},
	})
	if err != nil {
		return "", err
	}
	return printResponse(resp), nil
}

func (a *Agent) executeSnackRevenue(ctx context.Context, session *genai.ChatSession, funcCall genai.FunctionCall) (string, error) {
	args := funcCall.Args
	startStr, _ := args["start_date"].(string)
	endStr, _ := args["end_date"].(string)

	start, err1 := time.Parse("2006-01-02", startStr)
	end, err2 := time.Parse("2006-01-02", endStr)
	if err1 != nil || err2 != nil {
		return "Error: Dates must be in YYYY-MM-DD format.", nil
	}
	end = end.Add(23*time.Hour + 59*time.Minute)

	revenue, count, err := database.SnackRevenue(a.db, start, end)
	if err != nil {
		return "Error calculating snack revenue.", nil
	}

	resp, err := session.SendMessage(ctx, genai.FunctionResponse{
		Name: "get_snack_revenue",
		Response: map[string]interface{}{
			"revenue":     revenue,
			"sales_count": count,
		},
	})
	if err != nil {
		return "", err
	}
	return printResponse(resp), nil
}

func printResponse(resp *genai.GenerateContentResponse) string {
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return "I completed the action."
}
