package client_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqtt-tools/go-mqtt-cli/client"
	"github.com/mqtt-tools/go-mqtt-cli/internal/transport"
)

func TestClientConnectPublishDisconnect(t *testing.T) {
	clientConn, brokerConn := transport.NewPipePair()
	defer clientConn.Close()
	defer brokerConn.Close()

	c := client.New(clientConn, client.Options{
		ClientID:  "mqtt",
		KeepAlive: 60 * time.Second,
		Sequence:  1,
	})

	done := make(chan error, 1)
	go func() { done <- c.Connect() }()

	buf := make([]byte, 64)
	n, err := brokerConn.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, byte(0x10), buf[0])
	_ = n
	_, err = brokerConn.Send([]byte{0x20, 0x02, 0x00, 0x00})
	require.NoError(t, err)
	require.NoError(t, <-done)

	pubDone := make(chan error, 1)
	go func() { pubDone <- c.Publish("t", 0, false, []byte("hi")) }()
	n, err = brokerConn.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, byte(0x30), buf[0])
	require.NoError(t, <-pubDone)

	discDone := make(chan error, 1)
	go func() { discDone <- c.Disconnect() }()
	n, err = brokerConn.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xE0, 0x00}, buf[:n])
	require.NoError(t, <-discDone)
}

func TestGenerateClientIDHasPrefix(t *testing.T) {
	id := client.GenerateClientID()
	assert.NotEmpty(t, id)
	assert.Contains(t, id, "mqtt-")
}
