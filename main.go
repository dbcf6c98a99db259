package main

import server "github.com/thereayou/converse/cmd/server"

func main() {
	srv := server.NewServer()
	defer srv.Shutdown()
	srv.Run()
}
