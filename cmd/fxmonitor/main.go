package main

import (
	"github.com/joho/godotenv"

	"github.com/Lfy181/sea-daily-briefing/internal/cli"
)

func main() {
	// .env 仅用于本地开发，缺失时直接依赖真实环境变量。
	_ = godotenv.Load()

	cli.Execute()
}
