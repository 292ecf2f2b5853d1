package realtime

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gatewatch/gatewatch-go/internal/conf"
	"github.com/gatewatch/gatewatch-go/internal/pipeline"
)

// Command creates the command that runs the gate monitor.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Monitor gate cameras in realtime mode",
		Long:  "Consume detection events from the tracker feed and maintain attendance sessions, the onsite counter and daily summaries.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conf.ValidateSettings(settings); err != nil {
				return err
			}
			return pipeline.Run(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the realtime command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Realtime.MQTT.Broker, "broker", viper.GetString("realtime.mqtt.broker"), "MQTT broker URL (e.g. tcp://localhost:1883)")
	cmd.Flags().StringVar(&settings.Realtime.MQTT.Topic, "topic", viper.GetString("realtime.mqtt.topic"), "MQTT topic carrying tracker events")
	cmd.Flags().StringVar(&settings.Realtime.Attendance.GateZone, "gatezone", viper.GetString("realtime.attendance.gatezone"), "Zone name that marks the gate")
	cmd.Flags().StringVar(&settings.Realtime.Attendance.GateCamera, "gatecamera", viper.GetString("realtime.attendance.gatecamera"), "Camera covering the gate")
	cmd.Flags().StringVar(&settings.Realtime.KeyedStore.Backend, "keyedstore", viper.GetString("realtime.keyedstore.backend"), "Ephemeral store backend (memory or redis)")
	cmd.Flags().StringVar(&settings.Realtime.KeyedStore.Redis.Addr, "redisaddr", viper.GetString("realtime.keyedstore.redis.addr"), "Redis address when the redis backend is selected")
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port for the HTTP API")

	// Bind flags to the viper settings
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
