package server

import (
	"strconv"

	"github.com/kataras/iris/v12"

	"github.com/khalildhmine/fmbq-sub002/internal/auth"
	"github.com/khalildhmine/fmbq-sub002/internal/chat"
	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/brand"
	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/category"
	chatmodel "github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/coupon"
	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/product"
	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/user"
	"github.com/khalildhmine/fmbq-sub002/internal/middleware"
)

// RegisterAdminRoutes 注册后台管理端的 HTTP 路由
// 端口通常是 8081，与前台 Web 服务分离，但共享同一个聊天 hub
func RegisterAdminRoutes(app *iris.Application, d *Deps) {
	cfg := d.Cfg

	// 客服工作台的实时连接：必须持有带 agent 角色的有效 JWT
	app.Get("/ws/agent", middleware.ChatConnectRateLimit(), func(ctx iris.Context) {
		creds := auth.Credentials{Token: bearerToken(ctx)}
		identity := auth.AuthenticateConnection(ctx.Request().Context(), &cfg.JWT, d.TokenCache, d.Logger, creds)
		if !identity.IsAgent() {
			ctx.StopWithJSON(403, iris.Map{"code": 403, "msg": "agent token required"})
			return
		}
		if err := d.Hub.ServeWS(ctx.ResponseWriter(), ctx.Request(), identity); err != nil {
			d.Logger.Warnf("agent ws upgrade failed: %v", err)
		}
	})

	api := app.Party("/api")

	api.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0, "msg": "ok"})
	})

	// 后台登录：只放行客服角色
	api.Post("/login", func(ctx iris.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		token, err := d.Users.Login(ctx.Request().Context(), req.Username, req.Password)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": err.Error()})
			return
		}
		claims, err := auth.ParseToken(&cfg.JWT, token)
		if err != nil || claims.Role != user.RoleAgent {
			ctx.StopWithJSON(403, iris.Map{"code": 403, "msg": "not an agent account"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"token": token, "nickname": claims.Nickname}})
	})

	// 需要客服身份的接口
	adminAPI := api.Party("/", func(ctx iris.Context) {
		token := bearerToken(ctx)
		if token == "" {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "missing token"})
			return
		}
		claims, err := auth.ParseToken(&cfg.JWT, token)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "invalid token"})
			return
		}
		if claims.Role != user.RoleAgent {
			ctx.StopWithJSON(403, iris.Map{"code": 403, "msg": "agent only"})
			return
		}
		ctx.Values().Set("user_id", claims.UserID)
		ctx.Values().Set("username", claims.Username)
		ctx.Values().Set("nickname", claims.Nickname)
		ctx.Next()
	})

	// ---------- 商品管理 ----------

	adminAPI.Get("/products", func(ctx iris.Context) {
		list, err := d.Products.ListAll(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	adminAPI.Post("/products", func(ctx iris.Context) {
		var p product.Product
		if err := ctx.ReadJSON(&p); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := d.Products.Create(ctx.Request().Context(), &p); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": p})
	})

	adminAPI.Put("/products/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		var p product.Product
		if err := ctx.ReadJSON(&p); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		p.ID = id
		if err := d.Products.Update(ctx.Request().Context(), &p); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": p})
	})

	adminAPI.Delete("/products/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		if err := d.Products.Delete(ctx.Request().Context(), id); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "deleted"})
	})

	// ---------- 分类/品牌管理 ----------

	adminAPI.Get("/categories", func(ctx iris.Context) {
		list, err := d.Catalog.ListCategories(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	adminAPI.Post("/categories", func(ctx iris.Context) {
		var c category.Category
		if err := ctx.ReadJSON(&c); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := d.Catalog.CreateCategory(ctx.Request().Context(), &c); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": c})
	})

	adminAPI.Put("/categories/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		var c category.Category
		if err := ctx.ReadJSON(&c); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		c.ID = id
		if err := d.Catalog.UpdateCategory(ctx.Request().Context(), &c); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": c})
	})

	adminAPI.Delete("/categories/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		if err := d.Catalog.DeleteCategory(ctx.Request().Context(), id); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "deleted"})
	})

	adminAPI.Get("/brands", func(ctx iris.Context) {
		list, err := d.Catalog.ListBrands(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	adminAPI.Post("/brands", func(ctx iris.Context) {
		var b brand.Brand
		if err := ctx.ReadJSON(&b); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := d.Catalog.CreateBrand(ctx.Request().Context(), &b); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": b})
	})

	adminAPI.Put("/brands/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		var b brand.Brand
		if err := ctx.ReadJSON(&b); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		b.ID = id
		if err := d.Catalog.UpdateBrand(ctx.Request().Context(), &b); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": b})
	})

	adminAPI.Delete("/brands/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		if err := d.Catalog.DeleteBrand(ctx.Request().Context(), id); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "deleted"})
	})

	// ---------- 优惠券管理 ----------

	adminAPI.Get("/coupons", func(ctx iris.Context) {
		list, err := d.Coupons.ListAll(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	adminAPI.Post("/coupons", func(ctx iris.Context) {
		var c coupon.Coupon
		if err := ctx.ReadJSON(&c); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := d.Coupons.Create(ctx.Request().Context(), &c); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": c})
	})

	adminAPI.Put("/coupons/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		var c coupon.Coupon
		if err := ctx.ReadJSON(&c); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		c.ID = id
		if err := d.Coupons.Update(ctx.Request().Context(), &c); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": c})
	})

	adminAPI.Delete("/coupons/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		if err := d.Coupons.Delete(ctx.Request().Context(), id); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "deleted"})
	})

	// ---------- 订单管理 ----------

	adminAPI.Get("/orders", func(ctx iris.Context) {
		limit := ctx.URLParamIntDefault("limit", 100)
		list, err := d.Orders.ListRecent(ctx.Request().Context(), limit)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	adminAPI.Post("/orders/{id:int64}/pay", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		if err := d.Orders.MarkPaid(ctx.Request().Context(), id); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "paid"})
	})

	adminAPI.Post("/orders/{id:int64}/cancel", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		if err := d.Orders.Cancel(ctx.Request().Context(), id); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "cancelled"})
	})

	// ---------- 通知中心 ----------

	adminAPI.Get("/notifications", func(ctx iris.Context) {
		limit := ctx.URLParamIntDefault("limit", 50)
		list, err := d.Notifications.ListRecent(ctx.Request().Context(), limit)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	adminAPI.Get("/notifications/unread", func(ctx iris.Context) {
		n, err := d.Notifications.CountUnread(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"unread": n}})
	})

	adminAPI.Post("/notifications/read", func(ctx iris.Context) {
		var req struct {
			IDs []int64 `json:"ids"`
			All bool    `json:"all"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		var err error
		if req.All {
			err = d.Notifications.MarkAllRead(ctx.Request().Context())
		} else {
			err = d.Notifications.MarkRead(ctx.Request().Context(), req.IDs)
		}
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "ok"})
	})

	// ---------- 客服工作台 ----------

	adminAPI.Get("/chat/sessions", func(ctx iris.Context) {
		status := ctx.URLParam("status")
		limit := ctx.URLParamIntDefault("limit", 50)
		list, unread, err := d.ChatConsole.ListSessions(ctx.Request().Context(), status, limit)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"sessions": list, "unread": unread}})
	})

	adminAPI.Get("/chat/sessions/{id:string}", func(ctx iris.Context) {
		sess, err := d.ChatConsole.SessionDetail(ctx.Request().Context(), ctx.Params().Get("id"), agentIdentity(ctx))
		if err != nil {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "session not found"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": sess})
	})

	adminAPI.Post("/chat/sessions/{id:string}/messages", func(ctx iris.Context) {
		var req struct {
			Content string `json:"content"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		msg, err := d.ChatConsole.AgentSend(ctx.Request().Context(), agentIdentity(ctx), ctx.Params().Get("id"), req.Content)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": msg})
	})

	adminAPI.Post("/chat/sessions/{id:string}/close", func(ctx iris.Context) {
		if err := d.ChatConsole.CloseSession(ctx.Request().Context(), ctx.Params().Get("id")); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "closed"})
	})

	adminAPI.Get("/chat/agents", func(ctx iris.Context) {
		list, err := d.Users.ListAgents(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		online := d.Hub.Presence().ListOnlineAgents()
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"agents": list, "online": online}})
	})

	// ---------- 看板 ----------

	adminAPI.Get("/dashboard", func(ctx iris.Context) {
		products, err := d.Products.Count(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		openSessions, err := d.ChatConsole.CountOpen(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		unread, err := d.Notifications.CountUnread(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{
			"productCount":  products,
			"openSessions":  openSessions,
			"unreadNotices": unread,
			"onlineAgents":  len(d.Hub.Presence().ListOnlineAgents()),
			"chatStats":     chat.GetMonitor().GetStats(),
		}})
	})
}

// agentIdentity 从已通过鉴权中间件的请求里还原客服参与者身份
func agentIdentity(ctx iris.Context) chatmodel.Participant {
	userID, _ := ctx.Values().Get("user_id").(int64)
	name, _ := ctx.Values().Get("nickname").(string)
	if name == "" {
		name, _ = ctx.Values().Get("username").(string)
	}
	return chatmodel.Participant{
		ID:          strconv.FormatInt(userID, 10),
		DisplayName: name,
		Role:        chatmodel.RoleAgent,
	}
}
