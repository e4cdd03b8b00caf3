package types

// FixedDimension describes one permanent, process-wide dimension node.
// Interest and function dimensions are seeded once at first boot and merged
// on every restart; they carry a group-independent identity and are never
// deleted.
type FixedDimension struct {
	Name        string `json:"name"`         // stable machine name, unique per dimension family
	DisplayName string `json:"display_name"` // caregiver-facing label
	Category    string `json:"category"`     // function dimensions only
	Description string `json:"description"`
}

// Interest dimension names - the 8 closed interest categories.
const (
	InterestVisual       = "visual"
	InterestAuditory     = "auditory"
	InterestTactile      = "tactile"
	InterestMotor        = "motor"
	InterestConstruction = "construction"
	InterestOrder        = "order"
	InterestCognitive    = "cognitive"
	InterestSocial       = "social"
)

// Function dimension category constants.
const (
	FunctionCategorySensory   = "sensory"
	FunctionCategorySocial    = "social"
	FunctionCategoryLanguage  = "language"
	FunctionCategoryMotor     = "motor"
	FunctionCategoryEmotional = "emotional"
	FunctionCategorySelfCare  = "self_care"
)

// InterestDimensions is the seed table for the 8 interest dimensions.
var InterestDimensions = []FixedDimension{
	{Name: InterestVisual, DisplayName: "视觉探索", Description: "Engagement with colors, lights, patterns, and visual detail"},
	{Name: InterestAuditory, DisplayName: "听觉探索", Description: "Engagement with sounds, music, rhythm, and voices"},
	{Name: InterestTactile, DisplayName: "触觉探索", Description: "Engagement with textures, materials, and touch-based play"},
	{Name: InterestMotor, DisplayName: "运动探索", Description: "Engagement with movement: running, jumping, climbing, swinging"},
	{Name: InterestConstruction, DisplayName: "建构游戏", Description: "Engagement with building, stacking, and assembling"},
	{Name: InterestOrder, DisplayName: "秩序排列", Description: "Engagement with lining up, sorting, sequencing, and routines"},
	{Name: InterestCognitive, DisplayName: "认知探究", Description: "Engagement with puzzles, numbers, letters, and cause-effect"},
	{Name: InterestSocial, DisplayName: "社交互动", Description: "Engagement with people: games with others, shared attention"},
}

// FunctionDimensions is the seed table for the 33 function dimensions,
// grouped into 6 categories.
var FunctionDimensions = []FixedDimension{
	// sensory (6)
	{Name: "sensory_seeking", DisplayName: "感官寻求", Category: FunctionCategorySensory, Description: "Actively seeks sensory input"},
	{Name: "sensory_tolerance", DisplayName: "感官耐受", Category: FunctionCategorySensory, Description: "Tolerates everyday sensory environments"},
	{Name: "auditory_processing", DisplayName: "听觉加工", Category: FunctionCategorySensory, Description: "Responds to and discriminates sounds"},
	{Name: "visual_tracking", DisplayName: "视觉追踪", Category: FunctionCategorySensory, Description: "Follows moving objects and shifts gaze"},
	{Name: "tactile_acceptance", DisplayName: "触觉接纳", Category: FunctionCategorySensory, Description: "Accepts varied textures on hands and body"},
	{Name: "body_awareness", DisplayName: "身体觉察", Category: FunctionCategorySensory, Description: "Awareness of body position and force"},
	// social (6)
	{Name: "eye_contact", DisplayName: "目光对视", Category: FunctionCategorySocial, Description: "Makes and holds eye contact"},
	{Name: "joint_attention", DisplayName: "共同注意", Category: FunctionCategorySocial, Description: "Shares attention to an object with another person"},
	{Name: "social_initiation", DisplayName: "社交发起", Category: FunctionCategorySocial, Description: "Initiates interaction with others"},
	{Name: "social_response", DisplayName: "社交回应", Category: FunctionCategorySocial, Description: "Responds when others initiate"},
	{Name: "turn_taking", DisplayName: "轮流等待", Category: FunctionCategorySocial, Description: "Takes turns in games and exchanges"},
	{Name: "imitation", DisplayName: "模仿能力", Category: FunctionCategorySocial, Description: "Imitates actions, gestures, and sounds"},
	// language (6)
	{Name: "receptive_language", DisplayName: "语言理解", Category: FunctionCategoryLanguage, Description: "Understands spoken words and instructions"},
	{Name: "expressive_language", DisplayName: "语言表达", Category: FunctionCategoryLanguage, Description: "Uses words or phrases to express needs"},
	{Name: "nonverbal_communication", DisplayName: "非口语沟通", Category: FunctionCategoryLanguage, Description: "Uses gestures, pointing, and facial expression"},
	{Name: "speech_imitation", DisplayName: "语音模仿", Category: FunctionCategoryLanguage, Description: "Repeats sounds and words on request"},
	{Name: "conversation", DisplayName: "对话交流", Category: FunctionCategoryLanguage, Description: "Sustains back-and-forth exchanges"},
	{Name: "symbolic_play", DisplayName: "象征游戏", Category: FunctionCategoryLanguage, Description: "Uses pretend play and symbols"},
	// motor (5)
	{Name: "gross_motor", DisplayName: "大运动", Category: FunctionCategoryMotor, Description: "Runs, jumps, climbs, and throws"},
	{Name: "fine_motor", DisplayName: "精细动作", Category: FunctionCategoryMotor, Description: "Grasps, stacks, draws, and manipulates small objects"},
	{Name: "motor_planning", DisplayName: "动作计划", Category: FunctionCategoryMotor, Description: "Sequences novel movements toward a goal"},
	{Name: "balance_coordination", DisplayName: "平衡协调", Category: FunctionCategoryMotor, Description: "Maintains balance during movement"},
	{Name: "bilateral_coordination", DisplayName: "双侧协调", Category: FunctionCategoryMotor, Description: "Uses both hands or sides together"},
	// emotional (5)
	{Name: "emotion_recognition", DisplayName: "情绪识别", Category: FunctionCategoryEmotional, Description: "Recognizes emotions in self and others"},
	{Name: "emotion_expression", DisplayName: "情绪表达", Category: FunctionCategoryEmotional, Description: "Expresses feelings in understandable ways"},
	{Name: "self_regulation", DisplayName: "自我调节", Category: FunctionCategoryEmotional, Description: "Calms down and recovers from upset"},
	{Name: "frustration_tolerance", DisplayName: "挫折耐受", Category: FunctionCategoryEmotional, Description: "Persists when a task is hard"},
	{Name: "attachment_security", DisplayName: "依恋安全", Category: FunctionCategoryEmotional, Description: "Seeks comfort from familiar caregivers"},
	// self_care (5)
	{Name: "feeding", DisplayName: "进食自理", Category: FunctionCategorySelfCare, Description: "Eats independently and accepts varied foods"},
	{Name: "dressing", DisplayName: "穿衣自理", Category: FunctionCategorySelfCare, Description: "Participates in dressing and undressing"},
	{Name: "toileting", DisplayName: "如厕自理", Category: FunctionCategorySelfCare, Description: "Manages toileting with decreasing support"},
	{Name: "sleep_routine", DisplayName: "睡眠规律", Category: FunctionCategorySelfCare, Description: "Settles into and maintains sleep routines"},
	{Name: "safety_awareness", DisplayName: "安全意识", Category: FunctionCategorySelfCare, Description: "Notices and avoids everyday dangers"},
}

// interestIndex and functionIndex support O(1) lookup by fixed name.
var (
	interestIndex = buildDimensionIndex(InterestDimensions)
	functionIndex = buildDimensionIndex(FunctionDimensions)
)

func buildDimensionIndex(dims []FixedDimension) map[string]FixedDimension {
	idx := make(map[string]FixedDimension, len(dims))
	for _, d := range dims {
		idx[d.Name] = d
	}
	return idx
}

// InterestByName returns the interest dimension with the given fixed name.
func InterestByName(name string) (FixedDimension, bool) {
	d, ok := interestIndex[name]
	return d, ok
}

// FunctionByName returns the function dimension with the given fixed name.
func FunctionByName(name string) (FixedDimension, bool) {
	d, ok := functionIndex[name]
	return d, ok
}

// IsValidInterestName checks if name is one of the 8 fixed interest dimensions.
func IsValidInterestName(name string) bool {
	_, ok := interestIndex[name]
	return ok
}

// IsValidFunctionName checks if name is one of the 33 fixed function dimensions.
func IsValidFunctionName(name string) bool {
	_, ok := functionIndex[name]
	return ok
}

// InterestNames returns the fixed interest names in seed order.
func InterestNames() []string {
	names := make([]string, len(InterestDimensions))
	for i, d := range InterestDimensions {
		names[i] = d.Name
	}
	return names
}

// FunctionNames returns the fixed function names in seed order.
func FunctionNames() []string {
	names := make([]string, len(FunctionDimensions))
	for i, d := range FunctionDimensions {
		names[i] = d.Name
	}
	return names
}
