package server

import (
	"strings"

	"github.com/kataras/iris/v12"

	"github.com/khalildhmine/fmbq-sub002/internal/auth"
	"github.com/khalildhmine/fmbq-sub002/internal/datamodels/product"
	"github.com/khalildhmine/fmbq-sub002/internal/middleware"
)

// RegisterRoutes 注册前台商城的 HTTP 路由
func RegisterRoutes(app *iris.Application, d *Deps) {
	cfg := d.Cfg

	// 在线客服入口：匿名也可接入，身份解析降级为访客
	// 握手阶段单独限流，避免重连风暴打穿 hub
	app.Get("/ws/support", middleware.ChatConnectRateLimit(), func(ctx iris.Context) {
		creds := auth.Credentials{
			Token:  bearerToken(ctx),
			UserID: ctx.URLParam("userId"),
			Name:   ctx.URLParam("name"),
		}
		identity := auth.AuthenticateConnection(ctx.Request().Context(), &cfg.JWT, d.TokenCache, d.Logger, creds)
		if err := d.Hub.ServeWS(ctx.ResponseWriter(), ctx.Request(), identity); err != nil {
			d.Logger.Warnf("ws upgrade failed: %v", err)
		}
	})

	api := app.Party("/api", middleware.StorefrontRateLimit())

	// 健康检查
	api.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{
			"code": 0,
			"msg":  "ok",
		})
	})

	// 用户注册/登录
	api.Post("/register", func(ctx iris.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Nickname string `json:"nickname"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		u, err := d.Users.Register(ctx.Request().Context(), req.Username, req.Password, req.Nickname)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"id": u.ID, "username": u.Username, "nickname": u.Nickname}})
	})

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
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"token": token}})
	})

	// 商品列表（支持分类筛选与关键字搜索）
	api.Get("/products", func(ctx iris.Context) {
		keyword := ctx.URLParam("q")
		categoryID, _ := ctx.URLParamInt64("categoryId")

		var list []*product.Product
		var err error
		switch {
		case keyword != "":
			list, err = d.Products.Search(ctx.Request().Context(), keyword)
		case categoryID > 0:
			list, err = d.Products.ListByCategory(ctx.Request().Context(), categoryID)
		default:
			list, err = d.Products.ListOnline(ctx.Request().Context())
		}
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	api.Get("/products/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		p, err := d.Products.GetByID(ctx.Request().Context(), id)
		if err != nil {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "product not found"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": p})
	})

	api.Get("/categories", func(ctx iris.Context) {
		list, err := d.Catalog.ListCategories(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	api.Get("/brands", func(ctx iris.Context) {
		list, err := d.Catalog.ListBrands(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// 需要登录的接口
	authAPI := api.Party("/", func(ctx iris.Context) {
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
		ctx.Values().Set("user_id", claims.UserID)
		ctx.Values().Set("username", claims.Username)
		ctx.Next()
	})

	// 下单
	authAPI.Post("/orders", func(ctx iris.Context) {
		var req struct {
			ProductID  int64  `json:"productId"`
			Quantity   int64  `json:"quantity"`
			CouponCode string `json:"couponCode"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		userID, _ := ctx.Values().Get("user_id").(int64)
		o, err := d.Orders.Place(ctx.Request().Context(), userID, req.ProductID, req.Quantity, req.CouponCode)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": o})
	})

	// 我的订单
	authAPI.Get("/orders", func(ctx iris.Context) {
		userID, _ := ctx.Values().Get("user_id").(int64)
		list, err := d.Orders.ListByUser(ctx.Request().Context(), userID)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	authAPI.Get("/orders/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		userID, _ := ctx.Values().Get("user_id").(int64)
		o, err := d.Orders.GetByID(ctx.Request().Context(), id)
		if err != nil || o.UserID != userID {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "order not found"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": o})
	})
}

// bearerToken 取出请求里的 JWT：优先 Authorization 头，其次 token 查询参数
// 浏览器 WebSocket 不支持自定义头，所以握手必须兼容查询参数形式
func bearerToken(ctx iris.Context) string {
	h := ctx.GetHeader("Authorization")
	if h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ctx.URLParam("token")
}
