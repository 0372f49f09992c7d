package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/trivia-host/internal/middleware"
)

const contextAnswerID = "answer_id"

// Routes - зависимости маршрутов API
type Routes struct {
	Auth       *middleware.AuthMiddleware
	Authorizer middleware.HostAuthorizer
	Game       *GameHandler
	Score      *ScoreHandler
	Answer     *AnswerHandler
	WS         *WSHandler
	Health     *HealthHandler

	// PlayLimit ограничивает маршруты игроков; nil - без ограничения
	PlayLimit gin.HandlerFunc
}

// Register регистрирует маршруты на роутере
func (rt *Routes) Register(router *gin.Engine) {
	router.GET("/healthz", rt.Health.Health)
	router.GET("/ws", rt.WS.HandleConnection)

	api := router.Group("/api")
	{
		games := api.Group("/games/:id")
		games.Use(
			rt.Auth.RequireAuth(),
			rt.Auth.RequireHost(),
			middleware.ExtractUintParam("id", middleware.ContextGameID),
			rt.Auth.HostGameAccess(rt.Authorizer),
		)
		{
			games.POST("/start", rt.Game.Start)
			games.POST("/end", rt.Game.End)
			games.POST("/reset", rt.Game.Reset)
			games.GET("/state", rt.Game.GetState)
			games.PUT("/current-question", rt.Game.SetCurrentQuestion)
			games.POST("/advance", rt.Game.Advance)
			games.PUT("/accepting-answers", rt.Game.SetAcceptingAnswers)
			games.PUT("/scores-visible", rt.Game.SetScoresVisible)
			games.GET("/live-teams", rt.Game.LiveTeams)
			games.GET("/qr", rt.Game.JoinQRCode)

			games.GET("/scores", rt.Score.GetScores)
			games.GET("/scores/export", rt.Score.ExportStandings)

			games.PUT("/answers/:answerId/grade",
				middleware.ExtractUintParam("answerId", contextAnswerID),
				rt.Answer.Grade)
		}

		play := api.Group("/play/:joinCode")
		if rt.PlayLimit != nil {
			play.Use(rt.PlayLimit)
		}
		play.Use(middleware.ExtractJoinCode("joinCode"))
		{
			play.POST("/answers", rt.Answer.Submit)
			play.GET("/scoreboard", rt.Score.PublicScoreboard)
		}
	}
}
