package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/tilt-balance/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"phaseOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	// leds expands the port value into one flag per pin, pin 0 first.
	"leds": func(v uint8) []bool {
		out := make([]bool, 8)
		for i := range out {
			out[i] = v&(1<<uint(i)) != 0
		}
		return out
	},
	"ms": func(d time.Duration) string {
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="1">
<title>Tilt Balance</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.bar { display: flex; gap: 6px; margin: 1em 0; }
.led { width: 24px; height: 24px; border-radius: 50%; background: #ddd; }
.led.lit { background: red; }
.running { color: green; font-weight: bold; }
.ending { color: orange; font-weight: bold; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Tilt Balance</h1>

<div class="bar" id="bar">{{range $i, $on := leds .LEDs}}<span class="led{{if $on}} lit{{end}}" title="pin {{$i}}"></span>{{end}}</div>

<h2>Game</h2>
<table>
<tr><th>Phase</th><td id="phase" class="{{if .Running}}running{{else if eq .Phase "ENDING"}}ending{{else}}idle{{end}}">{{phaseOrUnknown .Phase}}</td></tr>
<tr><th>Round</th><td>{{.Round}}</td></tr>
<tr><th>Score</th><td id="score">{{.Score}}</td></tr>
<tr><th>Last score</th><td>{{.LastScore}}</td></tr>
<tr><th>Best score</th><td>{{.BestScore}}</td></tr>
<tr><th>Position</th><td>{{printf "%.3f" .Position}} (pin {{.Pin}})</td></tr>
<tr><th>Velocity</th><td>{{printf "%.3f" .Velocity}}</td></tr>
<tr><th>Control rate</th><td>{{printf "%.0f" .FrequencyHz}} Hz ({{ms .ControlPeriod}})</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Axis</th><td>{{.Config.Axis}}</td></tr>
<tr><th>Rate</th><td>{{.Config.BaseHz}} Hz + {{.Config.StepHz}} Hz/s, max {{.Config.MaxHz}} Hz</td></tr>
<tr><th>Game over</th><td>flash {{.Config.FlashHoldMs}}ms, score {{.Config.ScoreHoldMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	indexTmpl.Execute(w, snap)
}
