package main

import (
	"flag"
	"strconv"

	"github.com/Allenxuxu/evloop/conn"
	"github.com/Allenxuxu/evloop/log"
)

type example struct{}

func (s *example) OnConnect(c *conn.Connection) {
	log.Info(" OnConnect ： ", c.PeerAddr())
}

func (s *example) OnMessage(c *conn.Connection, ctx interface{}, data []byte) (out []byte) {
	out = data
	return
}

func (s *example) OnClose(c *conn.Connection) {
	log.Info("OnClose: ", c.PeerAddr())
}

func main() {
	handler := new(example)
	var port int
	flag.IntVar(&port, "port", 1833, "server port")
	flag.Parse()

	s, err := conn.NewServer(handler,
		conn.Network("tcp"),
		conn.Address(":"+strconv.Itoa(port)))
	if err != nil {
		panic(err)
	}

	s.Start()
}
