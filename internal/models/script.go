// internal/models/script.go
package models

// SceneDelimiter 剧本中分隔场景的空行
const SceneDelimiter = "\n\n"

// SampleScript 新会话默认载入的示例剧本
const SampleScript = `第1段：春天来了，樱花盛开。粉色的花瓣在微风中轻轻飘落，像是一场美丽的花雨。

第2段：夏日的海滩上，金色的阳光洒在细腻的沙粒上。海浪轻轻拍打着岸边，带来阵阵清凉。

第3段：秋天的公园里，枫叶铺满了小径。孩子们在落叶堆里嬉戏，欢声笑语回荡在空中。

第4段：冬日的雪山上，白雪皑皑。滑雪者在山坡上飞驰而下，留下一道道优美的弧线。

第5段：城市的夜晚，霓虹灯闪烁。车水马龙中，人们匆匆而过，每个人都有自己的故事。

第6段：清晨的乡村，雾气缭绕。田野里，农民们已经开始了一天的劳作，勤劳的身影映衬着朝阳。

第7段：图书馆里，安静祥和。学生们埋头苦读，书页翻动的声音仿佛是对知识的渴望。

第8段：篮球场上，激烈的比赛正在进行。运动员们挥汗如雨，为胜利而奋斗。

第9段：实验室里，科学家们专注地工作着。显微镜下，他们探索着未知的世界，追求科技的进步。

第10段：音乐会现场，交响乐团正在演奏。美妙的旋律充满整个大厅，观众们沉醉其中。`

// SessionSnapshot 会话状态快照，用于API响应和WebSocket推送
type SessionSnapshot struct {
	ID            string   `json:"id"`
	Step          Step     `json:"step"`
	StepName      string   `json:"step_name"`
	Steps         []string `json:"steps"`
	CanAdvance    bool     `json:"can_advance"`
	CanRetreat    bool     `json:"can_retreat"`
	Script        string   `json:"script"`
	ScriptLength  int      `json:"script_length"` // 字数（按字符计）
	Scenes        []*Scene `json:"scenes"`
	SceneDuration int      `json:"scene_duration"`
}
