package main

import (
	"github.com/dunya-jewellery/shop/internal/app"
	"github.com/dunya-jewellery/shop/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewNotifierApp().Run()
}
