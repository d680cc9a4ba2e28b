package server

import (
	"github.com/gin-gonic/gin"

	"simucrise/internal/handlers"
)

func APIEndpoints(r *gin.Engine, roomH *handlers.RoomHandler, wsH *handlers.WebSocketHandler) {
	api := r.Group("/api")
	{
		rooms := api.Group("/rooms")
		{
			rooms.POST("", roomH.CreateRoom)
			rooms.GET("", roomH.ListRooms)
			rooms.GET("/:code", roomH.GetRoom)
			rooms.PATCH("/:code", roomH.UpdateRoom)
			rooms.POST("/:code/close", roomH.CloseRoom)
			rooms.GET("/:code/messages", roomH.GetRoomMessages)
			rooms.GET("/:code/events", roomH.GetRoomEvents)
		}
	}

	r.GET("/ws", wsH.HandleWebSocket)
}
