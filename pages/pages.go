package pages

import (
	"html/template"

	"decibel/database"
	"decibel/helpers"
	"decibel/models"
)

// IndexData is everything the single page needs for one render.
type IndexData struct {
	Flash         []database.Flash
	Lyrics        *models.LyricsResult
	Results       []models.SongCandidate
	Transcript    string
	Suggestions   []string
	AIEnabled     bool
	VoiceEnabled  bool
	HasSessionKey bool
}

func Template() *template.Template {
	return template.Must(template.New("index").Funcs(template.FuncMap{
		"loadedFrom": func(source models.LyricsSource) string {
			return helpers.LoadedFrom(string(source))
		},
		"truncate": helpers.Truncate,
	}).Parse(Index))
}

var Index = `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>Decibel Lyrics Finder</title>
	<style>
		body {
			font-family: Arial, sans-serif;
			line-height: 1.6;
			max-width: 900px;
			margin: 0 auto;
			padding: 20px;
		}
		.flash { padding: 8px 12px; margin: 6px 0; border-radius: 4px; }
		.flash.success { background: #e6f4ea; }
		.flash.info { background: #e8f0fe; }
		.flash.warning { background: #fef7e0; }
		.flash.error { background: #fce8e6; }
		.flash.hint { color: #555; font-style: italic; }
		.tabs section { border: 1px solid #ddd; padding: 12px; margin-bottom: 12px; }
		.card { border: 1px solid #ddd; border-radius: 6px; padding: 10px; margin: 8px 0; }
		.badge { font-size: 0.85em; padding: 2px 6px; border-radius: 10px; }
		.badge.high { background: #c8e6c9; }
		.badge.medium { background: #fff59d; }
		.badge.low { background: #ffcdd2; }
		.lyrics-box { white-space: pre-wrap; word-wrap: break-word; background: #fafafa; padding: 12px; }
	</style>
</head>
<body>
	<h1>Decibel Lyrics Finder</h1>

	{{range .Flash}}<div class="flash {{.Level}}">{{.Message}}</div>{{end}}

	<div class="tabs">
		<section id="by-name">
			<h2>Search by Name</h2>
			<form method="post" action="/lyrics">
				<input name="artist" placeholder="Artist name, e.g. Adele">
				<input name="title" placeholder="Song title, e.g. Hello">
				<button type="submit">Find Lyrics</button>
			</form>
		</section>

		<section id="by-lyrics">
			<h2>Search by Lyrics</h2>
			<form method="post" action="/search">
				<textarea name="text" rows="3" placeholder="Type a few lines you remember"></textarea>
				<button type="submit">Search by Text</button>
			</form>
			{{if .VoiceEnabled}}
			<button id="voice" type="button">Voice Search</button>
			{{else}}
			<button id="voice" type="button" disabled>Voice Search (Not Available)</button>
			{{end}}
			{{if .Transcript}}<p class="transcript">Last voice search: {{truncate .Transcript 30}}</p>{{end}}
			{{if .Suggestions}}
			<ul class="suggestions">{{range .Suggestions}}<li>{{.}}</li>{{end}}</ul>
			{{end}}
		</section>
	</div>

	{{if .Results}}
	<h2>Search Results</h2>
	{{range $i, $c := .Results}}
	<div class="card">
		<strong class="title">{{$c.Title}}</strong> by <span class="artist">{{$c.Artist}}</span>
		{{with $c.ConfidenceBadge}}<span class="badge {{.}}">{{$c.Score}}% match</span>{{end}}
		{{if $c.Album}}<div class="album">Album: {{$c.Album}}</div>{{end}}
		{{with $c.Metadata}}<div class="metadata">{{.}}</div>{{end}}
		{{with $c.ShortPhrase}}<div class="phrase">"{{.}}"</div>{{end}}
		<form method="post" action="/select/{{$i}}"><button type="submit">View Lyrics</button></form>
	</div>
	{{end}}
	{{end}}

	{{with .Lyrics}}
	<h2 class="song">{{.Title}} - {{.Artist}}</h2>
	<p class="source">{{loadedFrom .Source}}</p>
	<div class="lyrics-box">{{.Lyrics}}</div>
	<a href="/download">Download Lyrics</a>
	<form method="post" action="/reset"><button type="submit">New Search</button></form>
	{{end}}

	<aside>
		<h3>Settings</h3>
		<p>AI search: {{if .AIEnabled}}enabled{{else}}disabled{{end}}</p>
		<form method="post" action="/key">
			<input type="password" name="api_key" placeholder="Gemini API key">
			<button type="submit">{{if .HasSessionKey}}Replace Key{{else}}Save Key{{end}}</button>
		</form>
	</aside>

	{{if .VoiceEnabled}}
	<script>
	document.getElementById("voice").addEventListener("click", async function () {
		const button = this;
		const stream = await navigator.mediaDevices.getUserMedia({ audio: true });
		const recorder = new MediaRecorder(stream, { mimeType: "audio/webm;codecs=opus" });
		const chunks = [];
		recorder.ondataavailable = e => chunks.push(e.data);
		recorder.onstop = async () => {
			stream.getTracks().forEach(t => t.stop());
			const form = new FormData();
			form.append("audio", new Blob(chunks, { type: "audio/webm" }), "voice.webm");
			await fetch("/voice", { method: "POST", body: form });
			window.location = "/";
		};
		button.disabled = true;
		button.textContent = "Recording... speak or sing the lyrics";
		recorder.start();
		setTimeout(() => recorder.stop(), 12000);
	});
	</script>
	{{end}}
</body>
</html>`
