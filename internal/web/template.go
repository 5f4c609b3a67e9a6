package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/flicker/internal/logic"
	"github.com/sweeney/flicker/internal/mqtt"
	"github.com/sweeney/flicker/internal/status"
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
	"percent": func(b uint8) int {
		return int(b) * 100 / logic.MaxBrightness
	},
	"held": func(h logic.HoldState) bool {
		return h == logic.Holding
	},
	// LEDs are numbered from 1, as on the terminal view and the pin flags.
	"led": func(i int) int {
		return i + 1
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
{{if not .Config.WSBroker}}<meta http-equiv="refresh" content="5">{{end}}
<title>Fireplace Flicker</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.held { color: orange; font-weight: bold; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.bar { background: #eee; height: 10px; }
.bar div { background: #e85; height: 10px; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Fireplace Flicker{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Flame</h2>
<table>
<tr><th>Brightness</th><td><span id="brightness">{{.Flame.Brightness}} ({{percent .Flame.Brightness}}%)</span><div class="bar"><div id="brightness-bar" style="width: {{percent .Flame.Brightness}}%"></div></div></td></tr>
<tr><th>Duty range</th><td>[{{.Flame.Edges.Low}}, {{.Flame.Edges.High}})</td></tr>
<tr><th>Hold</th><td id="hold" class="{{if held .Flame.Hold}}held{{else}}idle{{end}}">{{.Flame.Hold}}</td></tr>
{{range $i, $t := .Flame.Targets}}<tr><th>LED{{led $i}} target</th><td>{{$t}}</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Hold on</th><td>{{.Counts.HoldOn}}</td></tr>
<tr><th>Hold off</th><td>{{.Counts.HoldOff}}</td></tr>
<tr><th>Ceiling</th><td>{{.Counts.Ceiling}}</td></tr>
<tr><th>Floor</th><td>{{.Counts.Floor}}</td></tr>
<tr><th>Frames</th><td>{{.Counts.Frames}}</td></tr>
<tr><th>Dropped edges</th><td>{{.EdgeDrops}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Backend</th><td>{{.Config.Backend}}</td></tr>
<tr><th>PWM tick</th><td>{{.Config.PwmTickUs}}µs</td></tr>
<tr><th>Increment</th><td>{{.Config.IncrementMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
<tr><th>Live updates</th><td>{{if .Config.WSBroker}}{{.Config.WSBroker}}{{else}}disabled{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/flame">text</a></p>
{{if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt@5/dist/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "{{.Topic}}";
  var dot = document.getElementById("live-dot");
  var brightnessEl = document.getElementById("brightness");
  var barEl = document.getElementById("brightness-bar");
  var holdEl = document.getElementById("hold");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function setFlame(f) {
    var pct = Math.floor(f.brightness * 100 / 255);
    brightnessEl.textContent = f.brightness + " (" + pct + "%)";
    barEl.style.width = pct + "%";
    holdEl.textContent = f.hold ? "HOLDING" : "IDLE";
    holdEl.className = f.hold ? "held" : "idle";
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.flicker) {
        setFlame(msg.flicker);
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Topic  string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Topic:    mqtt.Topic,
	}
	indexTmpl.Execute(w, data)
}
