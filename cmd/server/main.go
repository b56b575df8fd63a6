package main

import (
	"context"
	"log"

	"github.com/kataras/golog"
	"github.com/kataras/iris/v12"

	"github.com/khalildhmine/fmbq-sub002/internal/config"
	"github.com/khalildhmine/fmbq-sub002/internal/server"
)

// 前台商城（8080）和后台管理（8081）跑在同一个进程里：
// 顾客与客服的实时连接必须挂在同一个聊天 hub 上，拆成两个进程会把路由表切开
func main() {
	cfg := config.Load()

	deps := server.NewDeps(cfg, golog.Default)
	deps.Hub.Run(context.Background())

	webApp := iris.New()
	server.RegisterRoutes(webApp, deps)

	adminApp := iris.New()
	server.RegisterAdminRoutes(adminApp, deps)

	go func() {
		addr := cfg.AdminServer.Addr()
		log.Printf("admin server listening on %s", addr)
		if err := adminApp.Run(iris.Addr(addr)); err != nil {
			log.Fatalf("failed to run admin server: %v", err)
		}
	}()

	addr := cfg.Server.Addr()
	log.Printf("web server listening on %s", addr)
	if err := webApp.Run(iris.Addr(addr)); err != nil {
		log.Fatalf("failed to run web server: %v", err)
	}
}
