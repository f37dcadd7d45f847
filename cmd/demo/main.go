// cmd/demo/main.go
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Corphon/SceneStudio/internal/app"
	"github.com/Corphon/SceneStudio/internal/config"
	"github.com/Corphon/SceneStudio/internal/di"
	"github.com/Corphon/SceneStudio/internal/models"
	"github.com/Corphon/SceneStudio/internal/services"
	"github.com/Corphon/SceneStudio/internal/utils"
)

const cliBoxMaxWidth = 90

var (
	stdin    = bufio.NewScanner(os.Stdin)
	sessions *services.SessionService
	preview  *services.PreviewService
)

func main() {
	auto := flag.Bool("auto", false, "非交互模式：走完三个步骤并输出时间线YAML")
	scriptFile := flag.String("script", "", "剧本文件路径，默认使用示例剧本")
	flag.Parse()

	fmt.Println("🚀 SceneStudio Console")
	fmt.Println("=================================")

	cfg, err := config.Load()
	if err != nil {
		log.Printf("❌ 加载配置失败: %v", err)
		return
	}

	logFile := fmt.Sprintf("%s/console_%s.log", cfg.LogDir, time.Now().Format("2006-01-02"))
	if err := utils.InitLogger(logFile); err != nil {
		log.Printf("⚠️ 无法初始化日志文件: %v", err)
	}
	defer utils.GetLogger().Close()

	if err := app.InitServices(cfg); err != nil {
		log.Printf("❌ 初始化服务失败: %v", err)
		return
	}
	container := di.GetContainer()
	sessions = container.Get(di.ServiceSessions).(*services.SessionService)
	preview = container.Get(di.ServicePreview).(*services.PreviewService)
	defer sessions.Stop()

	sessionID := sessions.Create().ID
	if *scriptFile != "" {
		content, err := os.ReadFile(*scriptFile)
		if err != nil {
			log.Printf("❌ 读取剧本失败: %v", err)
			return
		}
		update(sessionID, func(s *services.Session) {
			s.Store.SetScript(strings.ReplaceAll(string(content), "\r\n", "\n"))
		})
	}

	if *auto {
		runWalkthrough(sessionID)
		return
	}

	for {
		showSession(sessionID)
		showMenu()
		if !handleChoice(sessionID, getUserInput("请选择: ")) {
			fmt.Println("👋 再见")
			return
		}
		fmt.Println()
	}
}

// runWalkthrough 生成全部素材后输出时间线
func runWalkthrough(sessionID string) {
	update(sessionID, func(s *services.Session) {
		s.Advance()
		s.Store.GenerateAllImages()
		s.Store.GenerateAllVideos()
		s.Advance()
	})

	content, err := preview.Render(sessionID, services.ExportFormatYAML)
	if err != nil {
		log.Printf("❌ 生成时间线失败: %v", err)
		return
	}
	fmt.Print(string(content))
}

func showMenu() {
	printBox("菜单", strings.Join([]string{
		"n) 下一步        p) 上一步",
		"s) 编辑剧本      d) 重新切分场景",
		"e) 编辑场景文本  i) 生成图片",
		"c) 选择图片      v) 生成视频",
		"I) 全部生成图片  V) 全部生成视频",
		"t) 设置场景时长  x) 导出时间线",
		"q) 退出",
	}, "\n"))
}

func handleChoice(sessionID, choice string) bool {
	switch choice {
	case "n":
		update(sessionID, func(s *services.Session) { s.Advance() })
	case "p":
		update(sessionID, func(s *services.Session) { s.Retreat() })
	case "s":
		script := readScript()
		update(sessionID, func(s *services.Session) { s.Store.SetScript(script) })
	case "d":
		update(sessionID, func(s *services.Session) {
			fmt.Printf("✅ 已切分出 %d 个场景\n", s.Store.DeriveScenes())
		})
	case "e":
		id := readInt("场景ID: ")
		text := getUserInput("新文本: ")
		updateErr(sessionID, func(s *services.Session) error {
			return s.Store.UpdateSceneField(id, models.SceneFieldText, text)
		})
	case "i":
		id := readInt("场景ID: ")
		update(sessionID, func(s *services.Session) { s.Store.GenerateImages(id) })
	case "c":
		id := readInt("场景ID: ")
		index := readInt(fmt.Sprintf("图片序号 (0-%d): ", models.ImagesPerScene-1))
		update(sessionID, func(s *services.Session) { s.Store.SelectImage(id, index) })
	case "v":
		id := readInt("场景ID: ")
		update(sessionID, func(s *services.Session) { s.Store.GenerateVideo(id) })
	case "I":
		update(sessionID, func(s *services.Session) {
			fmt.Printf("✅ 为 %d 个场景生成了图片\n", s.Store.GenerateAllImages())
		})
	case "V":
		update(sessionID, func(s *services.Session) {
			fmt.Printf("✅ 为 %d 个场景生成了视频\n", s.Store.GenerateAllVideos())
		})
	case "t":
		seconds := readInt(fmt.Sprintf("每个场景时长 (%d-%d 秒): ", models.MinSceneDuration, models.MaxSceneDuration))
		if _, err := preview.SetSceneDuration(sessionID, seconds); err != nil {
			fmt.Printf("❌ %v\n", err)
		}
	case "x":
		format := getUserInputWithDefault("格式 yaml/json", services.ExportFormatYAML)
		result, err := preview.Export(sessionID, format)
		if err != nil {
			fmt.Printf("❌ 导出失败: %v\n", err)
			break
		}
		fmt.Printf("✅ 已导出到 %s (%d 字节)\n", result.FilePath, result.Size)
	case "q", "quit", "exit":
		return false
	default:
		fmt.Println("❌ 无效的选择")
	}
	return true
}

// showSession 按当前步骤打印会话内容
func showSession(sessionID string) {
	snapshot, err := sessions.Snapshot(sessionID)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}

	stepLine := make([]string, len(snapshot.Steps))
	for i, name := range snapshot.Steps {
		if models.Step(i) == snapshot.Step {
			name = "[" + name + "]"
		}
		stepLine[i] = name
	}
	title := strings.Join(stepLine, " → ")

	switch snapshot.Step {
	case models.StepScriptInput:
		printBox(title, fmt.Sprintf("%s\n\n(%d 字)", truncateForCLI(snapshot.Script, 400), snapshot.ScriptLength))

	case models.StepSceneEditing:
		if len(snapshot.Scenes) == 0 {
			printBox(title, "没有场景")
			return
		}
		lines := make([]string, 0, len(snapshot.Scenes))
		for _, scene := range snapshot.Scenes {
			flags := ""
			if scene.HasImage {
				flags += " 🖼"
			}
			if scene.HasVideo {
				flags += " 🎬"
			}
			selected := "-"
			if scene.SelectedImageIndex != nil {
				selected = strconv.Itoa(*scene.SelectedImageIndex)
			}
			lines = append(lines, fmt.Sprintf("#%d%s 选中:%s 互动:%d  %s",
				scene.ID, flags, selected, scene.InteractionCount, truncateForCLI(scene.Text, 40)))
		}
		printBox(title, strings.Join(lines, "\n"))

	case models.StepPreview:
		timeline := services.BuildTimeline(snapshot.ID, snapshot.Scenes, snapshot.SceneDuration, time.Now())
		lines := []string{fmt.Sprintf("每个场景 %d 秒，总时长 %d 秒", timeline.SceneDuration, timeline.TotalDuration)}
		for _, entry := range timeline.Entries {
			video := ""
			if entry.Video != "" {
				video = " 🎬"
			}
			lines = append(lines, fmt.Sprintf("%3ds  %s%s  %s", entry.Start, entry.Label, video, truncateForCLI(entry.Text, 40)))
		}
		printBox(title, strings.Join(lines, "\n"))
	}
}

func update(sessionID string, fn func(*services.Session)) {
	updateErr(sessionID, func(s *services.Session) error {
		fn(s)
		return nil
	})
}

func updateErr(sessionID string, fn func(*services.Session) error) {
	if _, err := sessions.Update(sessionID, fn); err != nil {
		fmt.Printf("❌ %v\n", err)
	}
}

// readScript 逐行读取剧本，单独一行 "." 结束输入
func readScript() string {
	fmt.Println("输入剧本，场景之间空一行，单独一行 . 结束：")
	lines := make([]string, 0)
	for stdin.Scan() {
		line := stdin.Text()
		if line == "." {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func readInt(prompt string) int {
	for {
		value, err := strconv.Atoi(getUserInput(prompt))
		if err == nil {
			return value
		}
		fmt.Println("❌ 请输入数字")
	}
}

// 获取用户输入
func getUserInput(prompt string) string {
	fmt.Print(prompt)
	stdin.Scan()
	return strings.TrimSpace(stdin.Text())
}

// 获取用户输入 (带默认值)
func getUserInputWithDefault(prompt, defaultValue string) string {
	input := getUserInput(fmt.Sprintf("%s [默认: %s]: ", prompt, defaultValue))
	if input == "" {
		return defaultValue
	}
	return input
}

func printBox(title, content string) {
	wrappedLines := wrapContentForBox(content, cliBoxMaxWidth)
	maxWidth := utf8.RuneCountInString(title)
	for _, line := range wrappedLines {
		if w := utf8.RuneCountInString(line); w > maxWidth {
			maxWidth = w
		}
	}
	border := strings.Repeat("─", maxWidth+2)
	fmt.Println("┌" + border + "┐")
	if title != "" {
		fmt.Printf("│ %s │\n", padRight(title, maxWidth))
		fmt.Println("├" + border + "┤")
	}
	for _, line := range wrappedLines {
		fmt.Printf("│ %s │\n", padRight(line, maxWidth))
	}
	fmt.Println("└" + border + "┘")
}

func wrapContentForBox(content string, maxWidth int) []string {
	var result []string
	for _, rawLine := range strings.Split(content, "\n") {
		runes := []rune(strings.TrimRight(rawLine, " "))
		for len(runes) > maxWidth {
			result = append(result, string(runes[:maxWidth]))
			runes = runes[maxWidth:]
		}
		result = append(result, string(runes))
	}
	return result
}

func padRight(text string, width int) string {
	current := utf8.RuneCountInString(text)
	if current >= width {
		return text
	}
	return text + strings.Repeat(" ", width-current)
}

func truncateForCLI(text string, limit int) string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\n", " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
