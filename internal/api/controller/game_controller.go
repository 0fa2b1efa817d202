package controller

import (
	"ctchen222/tictactoe-ai/internal/api/models"
	"ctchen222/tictactoe-ai/internal/api/response"
	"ctchen222/tictactoe-ai/internal/api/service"
	"ctchen222/tictactoe-ai/internal/bot"
	"ctchen222/tictactoe-ai/internal/game"
	"ctchen222/tictactoe-ai/internal/repository"
	"ctchen222/tictactoe-ai/internal/validator"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// GameController handles game-related HTTP requests.
type GameController struct {
	gameService service.GameService
}

// NewGameController creates a new GameController.
func NewGameController(gameService service.GameService) *GameController {
	return &GameController{
		gameService: gameService,
	}
}

// bind decodes the JSON body into req and runs its validate tags.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return false
	}
	if err := validator.GetValidator().Struct(req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// Create handles the new game endpoint.
func (gc *GameController) Create(c *gin.Context) {
	var req models.CreateGameRequest
	if !bind(c, &req) {
		return
	}

	state, token, err := gc.gameService.Create(c.Request.Context(), req.Difficulty)
	if err != nil {
		gc.fail(c, err)
		return
	}

	response.CreatedResponse(c, models.CreateGameResponse{
		Game:  models.NewGameResponse(state),
		Token: token,
	})
}

// Get handles the game lookup endpoint.
func (gc *GameController) Get(c *gin.Context) {
	state, err := gc.gameService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		gc.fail(c, err)
		return
	}
	response.SuccessResponse(c, models.NewGameResponse(state))
}

// Move handles a human move followed by the computer's reply.
func (gc *GameController) Move(c *gin.Context) {
	var req models.MoveRequest
	if !bind(c, &req) {
		return
	}

	state, err := gc.gameService.Play(c.Request.Context(), c.Param("id"), *req.Index)
	if err != nil {
		gc.fail(c, err)
		return
	}
	response.SuccessResponse(c, models.NewGameResponse(state))
}

// Restart handles the restart endpoint.
func (gc *GameController) Restart(c *gin.Context) {
	state, err := gc.gameService.Restart(c.Request.Context(), c.Param("id"))
	if err != nil {
		gc.fail(c, err)
		return
	}
	response.SuccessResponse(c, models.NewGameResponse(state))
}

// Hint handles the move hint endpoint.
func (gc *GameController) Hint(c *gin.Context) {
	scores, err := gc.gameService.Hint(c.Request.Context(), c.Param("id"))
	if err != nil {
		gc.fail(c, err)
		return
	}
	response.SuccessResponse(c, models.NewHintResponse(scores))
}

// Scores handles the scoreboard endpoint.
func (gc *GameController) Scores(c *gin.Context) {
	scores, err := gc.gameService.Scores(c.Request.Context())
	if err != nil {
		gc.fail(c, err)
		return
	}
	response.SuccessResponse(c, scores)
}

// ResetScores zeroes both counters.
func (gc *GameController) ResetScores(c *gin.Context) {
	if err := gc.gameService.ResetScores(c.Request.Context()); err != nil {
		gc.fail(c, err)
		return
	}
	response.SuccessResponse(c, repository.Scores{})
}

// Theme handles the theme lookup endpoint.
func (gc *GameController) Theme(c *gin.Context) {
	theme, err := gc.gameService.Theme(c.Request.Context())
	if err != nil {
		gc.fail(c, err)
		return
	}
	response.SuccessResponse(c, models.ThemeResponse{Theme: theme})
}

// SetTheme handles the theme update endpoint.
func (gc *GameController) SetTheme(c *gin.Context) {
	var req models.ThemeRequest
	if !bind(c, &req) {
		return
	}

	if err := gc.gameService.SetTheme(c.Request.Context(), req.Theme); err != nil {
		gc.fail(c, err)
		return
	}
	response.SuccessResponse(c, models.ThemeResponse{Theme: req.Theme})
}

// RequireGameToken rejects requests whose bearer token was not issued for
// the game in the :id path parameter.
func (gc *GameController) RequireGameToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			response.AbortWithError(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		token := strings.TrimPrefix(header, bearerPrefix)
		if err := gc.gameService.VerifyToken(token, c.Param("id")); err != nil {
			response.AbortWithError(c, http.StatusUnauthorized, err.Error())
			return
		}
		c.Next()
	}
}

func (gc *GameController) fail(c *gin.Context, err error) {
	apiErr := toAPIError(err)
	if apiErr.Code == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "http.path", c.FullPath(), "error", err)
	}
	response.WriteError(c, apiErr)
}

// toAPIError maps service errors onto HTTP status codes.
func toAPIError(err error) response.Error {
	switch {
	case errors.Is(err, game.ErrInvalidMove),
		errors.Is(err, game.ErrGameOver),
		errors.Is(err, game.ErrNotYourTurn),
		errors.Is(err, repository.ErrConcurrentUpdate):
		return response.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, bot.ErrUnknownDifficulty),
		errors.Is(err, repository.ErrUnknownTheme):
		return response.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrGameNotFound):
		return response.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidToken):
		return response.NewError(http.StatusUnauthorized, err.Error())
	default:
		return response.NewError(http.StatusInternalServerError, "internal server error")
	}
}

// RegisterRoutes mounts the game endpoints on api.
func (gc *GameController) RegisterRoutes(api gin.IRouter) {
	games := api.Group("/games")
	games.POST("", gc.Create)
	games.GET("/:id", gc.Get)
	games.GET("/:id/hint", gc.Hint)
	games.POST("/:id/moves", gc.RequireGameToken(), gc.Move)
	games.POST("/:id/restart", gc.RequireGameToken(), gc.Restart)

	api.GET("/scores", gc.Scores)
	api.DELETE("/scores", gc.ResetScores)
	api.GET("/preferences/theme", gc.Theme)
	api.PUT("/preferences/theme", gc.SetTheme)
}
