// Package texclean removes transient street-level objects (vehicles, people,
// street furniture) from texture source imagery, either with a semantic
// segmentation model or with a heuristic detector stack, and inpaints the
// removed regions.
package texclean

// RecognizedClasses is the segmentation vocabulary, indexed by model output
// class id. The "N/A" entries are unused ids kept so indices line up.
var RecognizedClasses = []string{
	"__background__", "person", "bicycle", "car", "motorcycle", "airplane", "bus",
	"train", "truck", "boat", "traffic light", "fire hydrant", "N/A", "stop sign",
	"parking meter", "bench", "bird", "cat", "dog", "horse", "sheep", "cow",
	"elephant", "bear", "zebra", "giraffe", "N/A", "backpack", "umbrella", "N/A",
	"N/A", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard",
	"sports ball", "kite", "baseball bat", "baseball glove", "skateboard",
	"surfboard", "tennis racket", "bottle", "N/A", "wine glass", "cup", "fork",
	"knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch",
	"potted plant", "bed", "N/A", "dining table", "N/A", "N/A", "toilet", "N/A",
	"tv", "laptop", "mouse", "remote", "keyboard", "cell phone", "microwave",
	"oven", "toaster", "sink", "refrigerator", "N/A", "book", "clock", "vase",
	"scissors", "teddy bear", "hair drier", "toothbrush",
}

// TransientClasses names the classes treated as temporary scene content that
// should never appear in a texture.
var TransientClasses = map[string]bool{
	"person":        true,
	"bicycle":       true,
	"car":           true,
	"motorcycle":    true,
	"bus":           true,
	"truck":         true,
	"traffic light": true,
	"fire hydrant":  true,
	"stop sign":     true,
	"parking meter": true,
	"bench":         true,
	"bird":          true,
	"cat":           true,
	"dog":           true,
	"horse":         true,
	"sheep":         true,
	"cow":           true,
	"elephant":      true,
	"bear":          true,
	"zebra":         true,
	"giraffe":       true,
	"backpack":      true,
	"umbrella":      true,
	"handbag":       true,
	"tie":           true,
	"suitcase":      true,
}
