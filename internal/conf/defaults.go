// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "GateWatch-Go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/gatewatch.log")

	viper.SetDefault("realtime.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("realtime.mqtt.topic", "frigate/events")
	viper.SetDefault("realtime.mqtt.username", "")
	viper.SetDefault("realtime.mqtt.password", "")

	viper.SetDefault("realtime.attendance.enabled", true)
	viper.SetDefault("realtime.attendance.gatezone", "gate_entrance")
	viper.SetDefault("realtime.attendance.gatecamera", "test_camera")
	viper.SetDefault("realtime.attendance.minzonedurationseconds", 1.0)
	viper.SetDefault("realtime.attendance.cooldownseconds", 15)
	viper.SetDefault("realtime.attendance.markerttlseconds", 60)
	viper.SetDefault("realtime.attendance.presencettlseconds", 30)

	viper.SetDefault("realtime.keyedstore.backend", "memory")
	viper.SetDefault("realtime.keyedstore.redis.addr", "localhost:6379")
	viper.SetDefault("realtime.keyedstore.redis.password", "")
	viper.SetDefault("realtime.keyedstore.redis.db", 0)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "gatewatch.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "gatewatch")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
	viper.SetDefault("output.mysql.database", "gatewatch")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
}
