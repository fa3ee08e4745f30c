package main

import (
	"fmt"
	"time"

	"github.com/Allenxuxu/evloop"
)

func main() {
	l, err := evloop.New()
	if err != nil {
		panic(err)
	}

	count := 0
	t := evloop.NewTimer(l)
	if err := t.Start(func(t *evloop.Timer) {
		count++
		fmt.Println("tick", count)
		if count == 5 {
			t.Stop()
		}
	}, time.Second, time.Second); err != nil {
		panic(err)
	}

	l.Run(evloop.RunDefault)
	_ = l.Close()
}
