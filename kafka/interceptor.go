package kafka

import (
	"github.com/IBM/sarama"
)

type StatusInterceptor struct {
}

func (i *StatusInterceptor) OnSend(msg *sarama.ProducerMessage) {
	msg.Headers = append(msg.Headers, sarama.RecordHeader{
		Key:   []byte("source"),
		Value: []byte("webSyuhai"),
	})
}

func NewStatusInterceptor() *StatusInterceptor {
	return &StatusInterceptor{}
}
