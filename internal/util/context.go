package util

import (
	"github.com/gin-gonic/gin"

	"github.com/oa-lab/hrdesk/dao/model"
	"github.com/oa-lab/hrdesk/pkg/workflow"
)

const (
	UserIDKey   = "x-user-id"
	UsernameKey = "x-user-name"

	UnitIDKey   = "x-unit-id"
	UnitNameKey = "x-unit-name"

	RoleKey = "x-role"
)

func SetJWTContext(
	c *gin.Context,
	msg JWTMessage,
) {
	c.Set(UserIDKey, msg.UserID)
	c.Set(UsernameKey, msg.Username)

	c.Set(UnitIDKey, msg.UnitID)
	c.Set(UnitNameKey, msg.UnitName)

	c.Set(RoleKey, msg.Role)
}

func GetToken(ctx *gin.Context) JWTMessage {
	var msg JWTMessage
	msg.UserID = ctx.GetUint(UserIDKey)
	msg.Username = ctx.GetString(UsernameKey)

	msg.UnitID = ctx.GetUint(UnitIDKey)
	msg.UnitName = ctx.GetString(UnitNameKey)

	role, _ := ctx.Get(RoleKey)
	msg.Role = role.(model.Role)
	return msg
}

// GetActor converts the JWT context into the identity the workflow engine
// checks permissions against.
func GetActor(ctx *gin.Context) workflow.Actor {
	token := GetToken(ctx)
	return workflow.Actor{
		ID:     token.UserID,
		Role:   token.Role,
		UnitID: token.UnitID,
	}
}
