package protocol

// IMUState is one gyro/accel sample published on imu/state.
type IMUState struct {
	GX   float64 `json:"gx"`
	GY   float64 `json:"gy"`
	GZ   float64 `json:"gz"`
	AX   float64 `json:"ax"`
	AY   float64 `json:"ay"`
	AZ   float64 `json:"az"`
	TSMS int64   `json:"ts_ms"`
}

// MotorTelemetry echoes the pulse widths currently applied to the motor
// driver plus the command that produced them, published on
// motor/telemetry for remote tooling.
type MotorTelemetry struct {
	PWL       int      `json:"pw_l"`
	PWR       int      `json:"pw_r"`
	PWLRaw    int      `json:"pw_l_raw"`
	PWRRaw    int      `json:"pw_r_raw"`
	TSMS      int64    `json:"ts_ms"`
	CmdVL     *float64 `json:"cmd_v_l"`
	CmdVR     *float64 `json:"cmd_v_r"`
	CmdUnit   *string  `json:"cmd_unit"`
	CmdSeq    *int64   `json:"cmd_seq"`
	CmdTSMS   *int64   `json:"cmd_ts_ms"`
	CmdDeadMS *int     `json:"cmd_deadman_ms"`
}

// HealthState is the periodic heartbeat published on health/state.
type HealthState struct {
	UptimeS float64 `json:"uptime_s"`
	TSMS    int64   `json:"ts_ms"`
}
