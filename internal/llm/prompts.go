// Package llm scores counseling transcripts for depression indicators
// against one or more chat-completion model backends.
package llm

import (
	"fmt"
	"strings"
)

// Aspect is one depression indicator presented to the model
type Aspect struct {
	Name        string
	Description string
}

// PHQAspects are the nine PHQ-9 indicators scored per conversation
var PHQAspects = []Aspect{
	{
		Name:        "Anhedonia atau Kehilangan Minat atau Kesenangan",
		Description: "Pengguna kehilangan minat atau kesenangan dalam hampir semua aktivitas sehari-hari. Jika kegiatan yang dulu bikin semangat sekarang terasa hambar, menurutmu apa yang bikin rasanya berubah?",
	},
	{
		Name:        "Mood Depresi",
		Description: "Pengguna mengalami suasana hati yang tertekan hampir sepanjang hari, hampir setiap hari. Kalau belakangan ini terasa sedih terus, menurutmu apa yang biasanya memicu atau memperberat perasaan itu?",
	},
	{
		Name:        "Perubahan Berat Badan atau Nafsu Makan",
		Description: "Pengguna mengalami penurunan atau peningkatan berat badan yang signifikan, atau perubahan nafsu makan. Kalau pola makanmu berubah, apa yang biasanya mempengaruhi—stres, ritme harian, atau hal lain?",
	},
	{
		Name:        "Gangguan Tidur",
		Description: "Pengguna mengalami insomnia atau hipersomnia hampir setiap hari. Saat tidur berantakan, apa yang biasanya membuatmu susah/lelap—pikiran tertentu, jadwal, atau kebiasaan sebelum tidur?",
	},
	{
		Name:        "Retardasi atau Agitasi Psikomotor",
		Description: "Pengguna menunjukkan perlambatan gerakan/pembicaraan atau agitasi yang dapat diamati oleh orang lain. Tanyakan pada teman apakah mereka melihat kamu lebih lambat atau lebih gelisah dari biasanya; menurutmu apa yang memicu perubahan ritme itu?",
	},
	{
		Name:        "Kelelahan atau Kehilangan Energi",
		Description: "Pengguna merasa lelah atau kehilangan energi hampir setiap hari. Saat energi cepat turun, biasanya apa yang terjadi sebelumnya—kurang tidur, beban pikiran, atau pola kerja?",
	},
	{
		Name:        "Perasaan Tidak Berharga atau Bersalah Berlebihan",
		Description: "Pengguna merasakan perasaan tidak berharga atau rasa bersalah yang berlebihan atau tidak tepat. Kalau rasa bersalah atau merasa tidak cukup muncul, biasanya dipicu oleh situasi atau pikiran seperti apa?",
	},
	{
		Name:        "Gangguan Konsentrasi atau Pengambilan Keputusan",
		Description: "Pengguna mengalami kesulitan dalam konsentrasi dan fungsi eksekutif, termasuk membuat keputusan, hampir setiap hari. Jika fokus gampang buyar, apa yang biasanya mengganggu—notifikasi, kekhawatiran tertentu, atau kelelahan?",
	},
	{
		Name:        "Pikiran tentang Kematian atau Bunuh Diri",
		Description: "Pengguna memiliki pikiran berulang tentang kematian, ide bunuh diri, atau percobaan bunuh diri. Jika pikiran seperti itu muncul, kapan biasanya muncul dan apa yang membuatnya terasa lebih kuat?",
	},
}

// phqScale maps each PHQ score to its description, index is the score
var phqScale = []string{
	"Tidak sama sekali — gejala tidak muncul dan tidak terbaca dalam percakapan.",
	"Beberapa kali — gejala muncul sesekali atau tersirat; dampaknya ringan dan mudah diabaikan.",
	"Cukup sering — gejala muncul berkali-kali dan mulai mengganggu aktivitas meski belum dominan.",
	"Dominan — gejala terus-menerus muncul secara jelas dan menghambat fungsi sehari-hari.",
}

// AspectLines formats the indicators as "name: description" lines with
// spaces in names replaced by underscores
func AspectLines() string {
	lines := make([]string, 0, len(PHQAspects))
	for _, a := range PHQAspects {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ReplaceAll(a.Name, " ", "_"), a.Description))
	}
	return strings.Join(lines, "\n")
}

// ScaleLines formats the PHQ scale as "score: description" lines
func ScaleLines() string {
	lines := make([]string, 0, len(phqScale))
	for score, desc := range phqScale {
		lines = append(lines, fmt.Sprintf("%d: %s", score, desc))
	}
	return strings.Join(lines, "\n")
}

const humanInstruction1 = `Anda adalah seorang psikolog. Kemudian terdapat 2 orang yang sedang melakukan percakapan,
yaitu Sindi/Anisa seorang mahasiswa psikologi yang supportive dan senang hati mendengarkan curhatan orang lain,
dan temannya, dimana Anisa/Sindi bertindak sebagai orang yang sedang mendengarkan curhat temannya yang kemungkinan mengalami gejala depresi,
atau bisa jadi tidak.
Pastikan bahwa anda menilai percakapan tersebut dengan sangat baik dan akurat HAL ini dikarenakan terkadang
mahasiswa dapat menjawabnya secara tersirat dan tidak langsung`

const aiResponse1 = `Baik saya mengerti instruksi anda, apa saja indikator gejala depresi yang akan
dianalisis ?`

const humanInstruction2 = `Berikut merupakan indikator-indikator dari gejala depresi berikut:
%s
Tugas anda adalah untuk menganalisis jawaban teman di atas untuk setiap indikator tersebut serta memberikan penilaian skala angka (0-3) yang menunjukkan sejauh mana indikasi gejala muncul dalam percakapan.
Gunakan satu skala Patient Health Questionnaire (PHQ-9) berikut untuk setiap indikator:
%s`

const aiResponse2 = `Baik saya mengerti tugas analisis yang anda berikan.`

const humanInstruction3 = `KELUARKAN HANYA JSON VALID (tanpa backticks, tanpa teks lain) dengan skema:
{
  "analysis": [
    {
      "indicator": "nama indikator persis sesuai di aspects",
      "context": "alasan spesifik + kutipan/parafrase singkat dari chat history (cantumkan pembicara/turn jika ada)",
      "score": { "phq": 0 }
    }
  ],
  "notes": "opsional, <= 8 kalimat (ambiguity/safety/klarifikasi klinis)."
}

Aturan:
- Setiap indikator pada "analysis" muncul tepat sekali.
- "score.phq" integer 0-3.
- Hanya JSON valid—tanpa komentar/trailing commas.

Berikut merupakan chat history yang akan anda analisis (Kronologikal):
%s`

// BuildAnalysisMessages assembles the fixed five-message scoring
// exchange: two canned instructions with their acknowledgements,
// followed by the rendered transcript and the rubric
func BuildAnalysisMessages(chatHistory string) []ChatMessage {
	return []ChatMessage{
		{Role: "user", Content: humanInstruction1},
		{Role: "assistant", Content: aiResponse1},
		{Role: "user", Content: fmt.Sprintf(humanInstruction2, AspectLines(), ScaleLines())},
		{Role: "assistant", Content: aiResponse2},
		{Role: "user", Content: fmt.Sprintf(humanInstruction3, chatHistory)},
	}
}
