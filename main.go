package main

import (
	"github.com/KitaosakaSystem/webSyuhai/server"
)

func main() {
	s := server.NewServer()
	s.Start(":8080")
}
