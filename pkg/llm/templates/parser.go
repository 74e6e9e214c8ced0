// Package templates 提供按语言组织的提示词模板解析与变量替换。
// 模板按 (language, group, key) 组织；解析时优先使用当前语言，
// 缺失时回退到默认语言。
package templates

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"doc-qa-go/pkg/log"
)

var (
	// ErrTemplateNotFound 表示模板在当前语言与默认语言中均不存在。
	ErrTemplateNotFound = errors.New("templates: template not found in any language")
	// ErrTemplateVariableMissing 表示模板中的占位符没有对应的变量值。
	ErrTemplateVariableMissing = errors.New("templates: missing template variable")
)

// locales 注册了所有可用的语言模板集，由各 locale_*.go 文件填充。
var locales = map[string]map[string]map[string]string{}

// registerLocale 在包初始化时登记一个语言的模板集。
func registerLocale(language string, groups map[string]map[string]string) {
	locales[language] = groups
}

// Parser 负责解析本地化模板并做字面量变量替换。
// 每个实例持有自己的 (language, group) 缓存，语言切换时整体失效。
type Parser struct {
	defaultLanguage string

	mu       sync.RWMutex
	language string
	cache    map[string]map[string]string
}

// NewParser 创建一个模板解析器；language 为空或不可用时采用 defaultLanguage。
func NewParser(language, defaultLanguage string) *Parser {
	if defaultLanguage == "" {
		defaultLanguage = "en"
	}
	p := &Parser{
		defaultLanguage: defaultLanguage,
		cache:           make(map[string]map[string]string),
	}
	p.SetLanguage(language)
	return p
}

// SetLanguage 设置当前语言；若目标语言没有模板集则回退到默认语言并告警。
// 无论结果如何都会清空模板缓存。
func (p *Parser) SetLanguage(language string) {
	if language == "" {
		language = p.defaultLanguage
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := locales[language]; ok {
		p.language = language
		log.Infof("[TemplateParser] 模板语言已设置为: %s", language)
	} else {
		p.language = p.defaultLanguage
		log.Warnf("[TemplateParser] 语言 '%s' 不可用, 回退到默认语言: %s", language, p.defaultLanguage)
	}

	p.cache = make(map[string]map[string]string)
}

// Language 返回当前生效的语言。
func (p *Parser) Language() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.language
}

// Get 解析 group.key 模板并替换变量。
// 当前语言缺失时回退默认语言；两边都缺失返回 ErrTemplateNotFound，
// 占位符缺少变量返回 ErrTemplateVariableMissing。
func (p *Parser) Get(group, key string, vars map[string]interface{}) (string, error) {
	if group == "" || key == "" {
		log.Errorf("[TemplateParser] group 和 key 不能为空")
		return "", ErrTemplateNotFound
	}

	p.mu.RLock()
	language := p.language
	p.mu.RUnlock()

	for _, target := range []string{language, p.defaultLanguage} {
		groupTemplates := p.loadGroup(target, group)
		if groupTemplates == nil {
			continue
		}
		tpl, ok := groupTemplates[key]
		if !ok {
			continue
		}
		result, err := substitute(tpl, vars)
		if err != nil {
			log.Errorf("[TemplateParser] 替换模板 '%s.%s' 变量失败: %v", group, key, err)
			return "", err
		}
		return result, nil
	}

	log.Errorf("[TemplateParser] 模板 '%s.%s' 在所有语言中均未找到", group, key)
	return "", ErrTemplateNotFound
}

// TemplateExists 检查模板是否存在；language 为空表示当前语言。
func (p *Parser) TemplateExists(group, key, language string) bool {
	if language == "" {
		language = p.Language()
	}
	groupTemplates := p.loadGroup(language, group)
	if groupTemplates == nil {
		return false
	}
	_, ok := groupTemplates[key]
	return ok
}

// loadGroup 按 (language, group) 加载模板组，命中共享缓存时直接返回。
func (p *Parser) loadGroup(language, group string) map[string]string {
	cacheKey := language + "." + group

	p.mu.RLock()
	cached, ok := p.cache[cacheKey]
	p.mu.RUnlock()
	if ok {
		return cached
	}

	groups, ok := locales[language]
	if !ok {
		return nil
	}
	groupTemplates, ok := groups[group]
	if !ok {
		return nil
	}

	p.mu.Lock()
	p.cache[cacheKey] = groupTemplates
	p.mu.Unlock()
	return groupTemplates
}

// substitute 对模板做字面量命名占位符替换，语法与 $name / ${name} 对齐，
// "$$" 转义为一个 "$"。多余的变量被忽略，缺失的变量返回错误。
func substitute(tpl string, vars map[string]interface{}) (string, error) {
	var sb strings.Builder
	runes := []rune(tpl)

	for i := 0; i < len(runes); i++ {
		if runes[i] != '$' {
			sb.WriteRune(runes[i])
			continue
		}
		if i+1 < len(runes) && runes[i+1] == '$' {
			sb.WriteRune('$')
			i++
			continue
		}

		name, next := parsePlaceholder(runes, i+1)
		if name == "" {
			sb.WriteRune('$')
			continue
		}
		value, ok := vars[name]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrTemplateVariableMissing, name)
		}
		sb.WriteString(fmt.Sprintf("%v", value))
		i = next - 1
	}
	return sb.String(), nil
}

// parsePlaceholder 从 start 处解析占位符名称，返回名称与其后第一个字符的下标。
func parsePlaceholder(runes []rune, start int) (string, int) {
	if start >= len(runes) {
		return "", start
	}

	braced := runes[start] == '{'
	if braced {
		start++
	}

	end := start
	for end < len(runes) && (unicode.IsLetter(runes[end]) || unicode.IsDigit(runes[end]) || runes[end] == '_') {
		end++
	}
	if end == start {
		return "", start
	}

	name := string(runes[start:end])
	if braced {
		if end >= len(runes) || runes[end] != '}' {
			return "", start
		}
		end++
	}
	return name, end
}
