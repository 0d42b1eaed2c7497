//go:build integration

package mqtt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	coremqtt "github.com/kilianp07/erdispatch/core/mqtt"
)

func startMosquitto(ctx context.Context, t *testing.T) string {
	t.Helper()
	conf := "listener 1883\nallow_anonymous true\npersistence false\n"
	path := filepath.Join(t.TempDir(), "mosquitto.conf")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o644))

	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "eclipse-mosquitto:2.0",
			ExposedPorts: []string{"1883/tcp"},
			WaitingFor:   wait.ForListeningPort("1883/tcp"),
			Files: []tc.ContainerFile{{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0o644,
			}},
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })
	host, err := cont.Host(ctx)
	require.NoError(t, err)
	port, err := cont.MappedPort(ctx, "1883")
	require.NoError(t, err)
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

// The crew simulator answers every dispatch order with an ack.
func TestDispatchRoundTripThroughBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	broker := startMosquitto(ctx, t)

	crew, err := NewCrew(Config{Broker: broker, ClientID: "erd", QoS: 1}, AutoAck{})
	require.NoError(t, err)
	crewCtx, stopCrew := context.WithCancel(ctx)
	defer stopCrew()
	go func() { _ = crew.Run(crewCtx) }()
	time.Sleep(250 * time.Millisecond)

	cli, err := NewPahoClient(Config{Broker: broker, ClientID: "dispatcher", QoS: 1})
	require.NoError(t, err)
	defer cli.Disconnect()
	time.Sleep(250 * time.Millisecond)

	id, err := cli.NotifyDispatch(ctx, coremqtt.DispatchOrder{VehicleID: 5, IncidentID: 1, Location: 3})
	require.NoError(t, err)
	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	ack, err := cli.WaitForAck(waitCtx, id)
	require.NoError(t, err)
	require.True(t, ack.Accepted)
	require.Equal(t, 5, ack.VehicleID)
}
